package features

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/pvpforecast/internal/contracts"
	"github.com/wonny/pvpforecast/pkg/redis"
)

const defaultCacheTTL = 10 * time.Minute

// CachedStore Redis read-through 캐시
// 찾은 행만 캐시하고 NotFound는 캐시하지 않음. 캐시 장애 시 원본 저장소로 진행
type CachedStore struct {
	next  Store
	cache *redis.Cache
	table string
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedStore wraps next with a Redis cache
func NewCachedStore(next Store, cache *redis.Cache, table string, ttl time.Duration, log zerolog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedStore{
		next:  next,
		cache: cache,
		table: table,
		ttl:   ttl,
		log:   log.With().Str("component", "features.cache").Logger(),
	}
}

// Fetch 캐시 조회 후 없으면 원본 조회
func (s *CachedStore) Fetch(ctx context.Context, key contracts.Key) (Row, error) {
	cacheKey := redis.FeatureRowKey(s.table, key.SKU, key.TimeKey)

	var cells []cachedCell
	found, err := s.cache.Get(ctx, cacheKey, &cells)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key.String()).Msg("feature cache read failed")
	} else if found {
		row, err := decodeRow(cells)
		if err == nil {
			return row, nil
		}
		s.log.Warn().Err(err).Str("key", key.String()).Msg("feature cache entry invalid")
	}

	row, err := s.next.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	encoded, err := encodeRow(row)
	if err != nil {
		s.log.Debug().Err(err).Str("key", key.String()).Msg("feature row not cacheable")
		return row, nil
	}
	if err := s.cache.Set(ctx, cacheKey, encoded, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key.String()).Msg("feature cache write failed")
	}

	return row, nil
}

// cachedCell JSON 왕복 후에도 원래 Go 타입을 유지하기 위한 형태
type cachedCell struct {
	Column string   `json:"c"`
	Kind   string   `json:"k"`
	Int    *int64   `json:"i,omitempty"`
	Float  *float64 `json:"f,omitempty"`
	Bool   *bool    `json:"b,omitempty"`
	Str    *string  `json:"s,omitempty"`
}

const (
	cellNull   = "null"
	cellInt    = "int"
	cellFloat  = "float"
	cellBool   = "bool"
	cellString = "string"
)

func encodeRow(row Row) ([]cachedCell, error) {
	cells := make([]cachedCell, 0, len(row))
	for col, v := range row {
		cell := cachedCell{Column: col}
		switch x := v.(type) {
		case nil:
			cell.Kind = cellNull
		case int, int8, int16, int32, int64:
			n := signedValue(x)
			cell.Kind, cell.Int = cellInt, &n
		case float32, float64:
			f, _ := numberValue(x)
			cell.Kind, cell.Float = cellFloat, &f
		case bool:
			cell.Kind, cell.Bool = cellBool, &x
		case string:
			cell.Kind, cell.Str = cellString, &x
		case time.Time:
			s := x.Format(time.RFC3339Nano)
			cell.Kind, cell.Str = cellString, &s
		default:
			return nil, fmt.Errorf("column %q: unsupported type %T", col, v)
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

func decodeRow(cells []cachedCell) (Row, error) {
	row := make(Row, len(cells))
	for _, cell := range cells {
		switch {
		case cell.Kind == cellNull:
			row[cell.Column] = nil
		case cell.Kind == cellInt && cell.Int != nil:
			row[cell.Column] = *cell.Int
		case cell.Kind == cellFloat && cell.Float != nil:
			row[cell.Column] = *cell.Float
		case cell.Kind == cellBool && cell.Bool != nil:
			row[cell.Column] = *cell.Bool
		case cell.Kind == cellString && cell.Str != nil:
			row[cell.Column] = *cell.Str
		default:
			return nil, fmt.Errorf("column %q: bad cell kind %q", cell.Column, cell.Kind)
		}
	}
	return row, nil
}
