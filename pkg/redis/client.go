package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/pvpforecast/pkg/config"
)

const defaultKeyPrefix = "pvp"

// ErrDisabled Redis가 꺼져 있을 때 Ping 결과
var ErrDisabled = errors.New("redis disabled")

// Client Redis 연결과 키 네임스페이스
// ⭐ SSOT: Redis 연결과 키 접두사는 여기서만 관리
//
// 피처 조회 경로에 놓이므로 읽기/쓰기 타임아웃을 짧게 잡아 캐시 장애가
// 요청 지연으로 번지지 않게 한다.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// New creates a Redis client.
// A disabled client is returned when REDIS_ENABLED=false; every helper then
// degrades to a no-op.
func New(cfg *config.Config) (*Client, error) {
	prefix := strings.TrimSpace(cfg.Redis.KeyPrefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if !cfg.Redis.Enabled {
		return &Client{prefix: prefix}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Client{rdb: rdb, prefix: prefix}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c.rdb != nil
}

// Key joins parts under the configured prefix, e.g. "pvp:cache:features:X1:7"
func (c *Client) Key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}

// Ping 헬스 체크용. 비활성이면 ErrDisabled
func (c *Client) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	return c.rdb.Ping(ctx).Err()
}
