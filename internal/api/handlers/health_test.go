package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/pvpforecast/pkg/database"
	"github.com/wonny/pvpforecast/pkg/logger"
	"github.com/wonny/pvpforecast/pkg/redis"
)

type fakeChecker struct {
	missing string
	got     []string
}

func (c *fakeChecker) HealthCheck(_ context.Context, tables ...string) (*database.HealthStatus, error) {
	c.got = tables
	status := &database.HealthStatus{Driver: "sqlite", Healthy: true}
	var err error
	for _, table := range tables {
		ts := database.TableStatus{Name: table, Reachable: table != c.missing}
		if !ts.Reachable {
			err = errors.New("no such table: " + table)
			ts.Error = err.Error()
			status.Healthy = false
		}
		status.Tables = append(status.Tables, ts)
	}
	return status, err
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	pipelines := []PipelineInfo{{Name: "A", Kind: "linear", Columns: 3, Hash: "abc"}}
	tables := []string{"forecasts", "features"}

	checker := &fakeChecker{}
	h := NewHealthHandler(checker, tables, nil, pipelines, logger.Nop())
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tables, checker.got)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"hash":"abc"`)
	assert.Contains(t, rec.Body.String(), `"cache":"disabled"`)
	assert.Contains(t, rec.Body.String(), `{"name":"features","reachable":true}`)
}

func TestHealth_MissingTable(t *testing.T) {
	h := NewHealthHandler(&fakeChecker{missing: "features"}, []string{"forecasts", "features"}, nil, nil, logger.Nop())
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), `"name":"features","reachable":false`)
}

func TestHealth_CacheState(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ok", nil, `"cache":"ok"`},
		{"disabled", redis.ErrDisabled, `"cache":"disabled"`},
		{"down", errors.New("dial tcp: refused"), `"cache":"unreachable"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(&fakeChecker{}, nil, fakePinger{err: tt.err}, nil, logger.Nop())
			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			// 캐시 장애는 요청 경로를 막지 않으므로 200 유지
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}
