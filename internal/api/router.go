package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/pvpforecast/internal/api/handlers"
	"github.com/wonny/pvpforecast/internal/metrics"
	"github.com/wonny/pvpforecast/pkg/logger"
)

// RouterDeps 라우터 구성 요소
type RouterDeps struct {
	Forecast *handlers.ForecastHandler
	Health   *handlers.HealthHandler

	// Metrics nil 이면 /metrics 비활성
	Metrics *metrics.Metrics

	// Limiter nil 이면 레이트 리밋 비활성
	Limiter Limiter

	Logger *logger.Logger
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", deps.Health.Health).Methods("GET")
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}

	// Forecast lifecycle (rate limited)
	limited := func(h http.HandlerFunc) http.Handler {
		if deps.Limiter == nil {
			return h
		}
		return rateLimitMiddleware(deps.Limiter, deps.Logger)(h)
	}
	r.Handle("/forecast_prices/", limited(deps.Forecast.CreateForecast)).Methods("POST")
	r.Handle("/actual_prices/", limited(deps.Forecast.RecordActuals)).Methods("POST")
	r.Handle("/forecasts/summary", limited(deps.Forecast.GetSummary)).Methods("GET")
	r.Handle("/forecasts/{sku}/{time_key:-?[0-9]+}", limited(deps.Forecast.GetForecast)).Methods("GET")

	// Apply middleware
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	r.Use(recoveryMiddleware(deps.Logger))

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondError(w, http.StatusNotFound, "Route not found", handlers.CodeNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed", handlers.CodeMethodNotAllowed)
	})

	return r
}
