package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/wonny/pvpforecast/pkg/database"
	"github.com/wonny/pvpforecast/pkg/logger"
	"github.com/wonny/pvpforecast/pkg/redis"
)

// HealthChecker 저장소 상태 확인 (Postgres / SQLite)
type HealthChecker interface {
	HealthCheck(ctx context.Context, tables ...string) (*database.HealthStatus, error)
}

// CachePinger feature 캐시 연결 확인 (*redis.Client)
type CachePinger interface {
	Ping(ctx context.Context) error
}

// PipelineInfo 로드된 파이프라인 요약
type PipelineInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Columns int    `json:"columns"`
	Hash    string `json:"hash"`
}

// HealthHandler handles GET /health
type HealthHandler struct {
	db        HealthChecker
	tables    []string
	cache     CachePinger
	pipelines []PipelineInfo
	logger    *logger.Logger
}

// NewHealthHandler creates a new health handler.
// tables are the ledger and feature tables that must be queryable; cache may be nil.
func NewHealthHandler(db HealthChecker, tables []string, cache CachePinger, pipelines []PipelineInfo, log *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, tables: tables, cache: cache, pipelines: pipelines, logger: log}
}

// Health reports storage and table reachability, cache state and the loaded pipelines
// GET /health
//
// 테이블 하나라도 조회 불가면 503. 캐시 장애는 원본 저장소로 우회되므로 상태만 표시
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK

	dbStatus, err := h.db.HealthCheck(ctx, h.tables...)
	if err != nil {
		h.logger.WithError(err).Warn("Database health check failed")
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	RespondJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   "pvpforecast",
		"database":  dbStatus,
		"cache":     h.cacheState(ctx),
		"pipelines": h.pipelines,
	})
}

func (h *HealthHandler) cacheState(ctx context.Context) string {
	if h.cache == nil {
		return "disabled"
	}
	err := h.cache.Ping(ctx)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, redis.ErrDisabled):
		return "disabled"
	default:
		h.logger.WithError(err).Warn("Cache health check failed")
		return "unreachable"
	}
}
