package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/pvpforecast/internal/contracts"
	"github.com/wonny/pvpforecast/internal/features"
	"github.com/wonny/pvpforecast/internal/inference"
	"github.com/wonny/pvpforecast/internal/ledger"
	"github.com/wonny/pvpforecast/pkg/logger"
)

// Response messages
const (
	MsgInvalidInput        = "Invalid input"
	MsgInvalidActualsInput = "Invalid actuals input"
	MsgFeaturesNotFound    = "SKU or date not found"
	MsgDtypePrefix         = "Dtype casting error: "
	MsgPredictionPrefix    = "Prediction error: "
	MsgForecastExists      = "Forecast exists"
	MsgNoMatchingForecast  = "No matching forecast"
	MsgActualsRecorded     = "Actuals already recorded"
	MsgInternal            = "Internal error"
)

// Operation labels for outcome metrics
const (
	OpForecast = "forecast"
	OpActuals  = "actuals"
)

// ForecastService forecast 생명주기 연산
type ForecastService interface {
	Forecast(ctx context.Context, key contracts.Key) (*contracts.ForecastResult, error)
	RecordActuals(ctx context.Context, key contracts.Key, actualA, actualB float64) (*contracts.ActualsResult, error)
	Get(ctx context.Context, key contracts.Key) (*contracts.Forecast, error)
	Summary(ctx context.Context) (*contracts.ReconciliationSummary, error)
}

// OutcomeRecorder 연산 결과 카운터 (metrics)
type OutcomeRecorder interface {
	RecordOutcome(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordOutcome(string, string) {}

// ForecastHandler handles forecast and actuals endpoints
// ⭐ SSOT: 오류 → 응답 매핑은 이 파일에서만
//
// 기본 모드: 도메인 결과(입력 오류, 미존재, dtype, 추론, 중복)는 모두 200 + {error, code}.
// 내부 오류만 500. strict 모드에서는 결과별 4xx/5xx 상태 사용
type ForecastHandler struct {
	service  ForecastService
	recorder OutcomeRecorder
	logger   *logger.Logger
	strict   bool
}

// HandlerOption configures a ForecastHandler
type HandlerOption func(*ForecastHandler)

// WithStrictStatus answers domain outcomes with their own HTTP status
// instead of 200
func WithStrictStatus(strict bool) HandlerOption {
	return func(h *ForecastHandler) {
		h.strict = strict
	}
}

// NewForecastHandler creates a new forecast handler. recorder may be nil
func NewForecastHandler(service ForecastService, recorder OutcomeRecorder, log *logger.Logger, opts ...HandlerOption) *ForecastHandler {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	h := &ForecastHandler{
		service:  service,
		recorder: recorder,
		logger:   log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CreateForecast scores a key and stores the forecast
// POST /forecast_prices/
func (h *ForecastHandler) CreateForecast(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(w, r)
	if err != nil {
		h.fail(w, OpForecast, http.StatusBadRequest, MsgInvalidInput, CodeInvalidInput)
		return
	}
	key, err := parseKey(body)
	if err != nil {
		h.fail(w, OpForecast, http.StatusBadRequest, MsgInvalidInput, CodeInvalidInput)
		return
	}

	result, err := h.service.Forecast(r.Context(), key)
	if err != nil {
		status, msg, code := classifyForecastError(err)
		if code == CodeInternal {
			h.logger.WithError(err).WithField("key", key.String()).Error("Forecast failed")
		}
		h.fail(w, OpForecast, status, msg, code)
		return
	}

	h.recorder.RecordOutcome(OpForecast, "ok")
	RespondJSON(w, http.StatusOK, result)
}

// RecordActuals attaches realized prices to an existing forecast
// POST /actual_prices/
func (h *ForecastHandler) RecordActuals(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(w, r)
	if err != nil {
		h.fail(w, OpActuals, http.StatusBadRequest, MsgInvalidActualsInput, CodeInvalidInput)
		return
	}
	key, err := parseKey(body)
	if err != nil {
		h.fail(w, OpActuals, http.StatusBadRequest, MsgInvalidActualsInput, CodeInvalidInput)
		return
	}
	actualA, errA := parseNumber(body, "pvp_actual_A")
	actualB, errB := parseNumber(body, "pvp_actual_B")
	if errA != nil || errB != nil {
		h.fail(w, OpActuals, http.StatusBadRequest, MsgInvalidActualsInput, CodeInvalidInput)
		return
	}

	result, err := h.service.RecordActuals(r.Context(), key, actualA, actualB)
	if err != nil {
		status, msg, code := classifyActualsError(err)
		if code == CodeInternal {
			h.logger.WithError(err).WithField("key", key.String()).Error("Record actuals failed")
		}
		h.fail(w, OpActuals, status, msg, code)
		return
	}

	h.recorder.RecordOutcome(OpActuals, "ok")
	RespondJSON(w, http.StatusOK, result)
}

// GetForecast returns one stored forecast
// GET /forecasts/{sku}/{time_key}
func (h *ForecastHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	key, err := parsePathKey(vars["sku"], vars["time_key"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, MsgInvalidInput, CodeInvalidInput)
		return
	}

	f, err := h.service.Get(r.Context(), key)
	if errors.Is(err, ledger.ErrForecastNotFound) {
		h.respondError(w, http.StatusNotFound, MsgNoMatchingForecast, CodeNotFound)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("key", key.String()).Error("Failed to get forecast")
		h.respondError(w, http.StatusInternalServerError, MsgInternal, CodeInternal)
		return
	}

	RespondJSON(w, http.StatusOK, f)
}

// GetSummary returns the reconciliation summary
// GET /forecasts/summary
func (h *ForecastHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to summarize forecasts")
		h.respondError(w, http.StatusInternalServerError, MsgInternal, CodeInternal)
		return
	}

	RespondJSON(w, http.StatusOK, s)
}

func (h *ForecastHandler) fail(w http.ResponseWriter, op string, status int, msg, code string) {
	h.recorder.RecordOutcome(op, code)
	h.respondError(w, status, msg, code)
}

// respondError 기본 모드에서는 내부 오류 외 모든 결과를 200으로 응답
func (h *ForecastHandler) respondError(w http.ResponseWriter, status int, msg, code string) {
	if !h.strict && code != CodeInternal {
		status = http.StatusOK
	}
	RespondError(w, status, msg, code)
}

func classifyForecastError(err error) (int, string, string) {
	var dtypeErr *features.DtypeError
	var infErr *inference.InferenceError

	switch {
	case errors.Is(err, features.ErrFeaturesNotFound):
		return http.StatusNotFound, MsgFeaturesNotFound, CodeNotFound
	case errors.As(err, &dtypeErr):
		return http.StatusUnprocessableEntity, MsgDtypePrefix + dtypeErr.Error(), CodeDtypeError
	case errors.As(err, &infErr):
		return http.StatusBadGateway, MsgPredictionPrefix + infErr.Error(), CodeInferenceError
	case errors.Is(err, ledger.ErrForecastExists):
		return http.StatusConflict, MsgForecastExists, CodeAlreadyExists
	}
	return http.StatusInternalServerError, MsgInternal, CodeInternal
}

func classifyActualsError(err error) (int, string, string) {
	switch {
	case errors.Is(err, ledger.ErrForecastNotFound):
		return http.StatusNotFound, MsgNoMatchingForecast, CodeNotFound
	case errors.Is(err, ledger.ErrActualsRecorded):
		return http.StatusConflict, MsgActualsRecorded, CodeAlreadyReconciled
	}
	return http.StatusInternalServerError, MsgInternal, CodeInternal
}
