package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/pvpforecast/internal/contracts"
)

const namespace = "pvp"

// Metrics Prometheus 수집기 모음
// ⭐ SSOT: 모든 메트릭 이름은 이 파일에서만 정의
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	outcomesTotal       *prometheus.CounterVec
	inferenceDuration   *prometheus.HistogramVec
	inferenceErrors     *prometheus.CounterVec
	ledgerForecasts     *prometheus.GaugeVec
	ledgerMAE           *prometheus.GaugeVec
	ledgerBias          *prometheus.GaugeVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers all collectors on reg
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		outcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_outcomes_total",
				Help:      "Forecast and actuals operations by result code.",
			},
			[]string{"operation", "outcome"},
		),
		inferenceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "inference_duration_seconds",
				Help:      "Scoring pipeline call duration in seconds.",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"pipeline"},
		),
		inferenceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inference_errors_total",
				Help:      "Failed scoring pipeline calls.",
			},
			[]string{"pipeline"},
		),
		ledgerForecasts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ledger_forecasts",
				Help:      "Forecast records by reconciliation state.",
			},
			[]string{"state"},
		),
		ledgerMAE: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ledger_mean_absolute_error",
				Help:      "Mean absolute error of reconciled forecasts.",
			},
			[]string{"pipeline"},
		),
		ledgerBias: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ledger_mean_error",
				Help:      "Mean signed error (actual - predicted) of reconciled forecasts.",
			},
			[]string{"pipeline"},
		),
	}

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.outcomesTotal,
		m.inferenceDuration,
		m.inferenceErrors,
		m.ledgerForecasts,
		m.ledgerMAE,
		m.ledgerBias,
	)
	return m
}

// ObserveHTTP records one finished request. path is the route template
func (m *Metrics) ObserveHTTP(method, path string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOutcome counts an operation result ("ok" or an error code)
func (m *Metrics) RecordOutcome(operation, outcome string) {
	m.outcomesTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveInference records one pipeline call
func (m *Metrics) ObserveInference(pipeline string, duration time.Duration, err error) {
	m.inferenceDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
	if err != nil {
		m.inferenceErrors.WithLabelValues(pipeline).Inc()
	}
}

// SetSummary publishes the latest reconciliation summary
func (m *Metrics) SetSummary(s *contracts.ReconciliationSummary) {
	m.ledgerForecasts.WithLabelValues("reconciled").Set(float64(s.Reconciled))
	m.ledgerForecasts.WithLabelValues("pending").Set(float64(s.Pending))
	m.ledgerMAE.WithLabelValues("A").Set(s.MAEA)
	m.ledgerMAE.WithLabelValues("B").Set(s.MAEB)
	m.ledgerBias.WithLabelValues("A").Set(s.BiasA)
	m.ledgerBias.WithLabelValues("B").Set(s.BiasB)
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
