package forecast

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wonny/pvpforecast/internal/contracts"
	"github.com/wonny/pvpforecast/internal/features"
	"github.com/wonny/pvpforecast/internal/ledger"
	"github.com/wonny/pvpforecast/pkg/tracing"
)

// FeatureResolver 키 → 파이프라인별 벡터
type FeatureResolver interface {
	Resolve(ctx context.Context, key contracts.Key) (features.Vector, features.Vector, error)
}

// Inferer A/B 추론
type Inferer interface {
	Infer(ctx context.Context, vecA, vecB features.Vector) (contracts.Prediction, error)
}

// Service forecast 생명주기 (조회 → 추론 → 생성, 이후 actuals 정산)
// ⭐ SSOT: 요청 처리 순서는 이 구조체에서만 정의. 첫 실패에서 중단
type Service struct {
	resolver FeatureResolver
	engine   Inferer
	ledger   ledger.Ledger
	tracer   trace.Tracer
	log      zerolog.Logger
}

// NewService 새 서비스 생성
func NewService(resolver FeatureResolver, engine Inferer, l ledger.Ledger, log zerolog.Logger) *Service {
	return &Service{
		resolver: resolver,
		engine:   engine,
		ledger:   l,
		tracer:   tracing.Tracer(),
		log:      log.With().Str("component", "forecast.service").Logger(),
	}
}

// Forecast resolves features, scores both pipelines and creates the record.
// 추론이 모두 성공한 경우에만 저장. 같은 키 재요청은 ledger.ErrForecastExists
func (s *Service) Forecast(ctx context.Context, key contracts.Key) (*contracts.ForecastResult, error) {
	ctx, span := s.tracer.Start(ctx, "forecast.Forecast", trace.WithAttributes(keyAttributes(key)...))
	defer span.End()

	vecA, vecB, err := s.resolve(ctx, key)
	if err != nil {
		return nil, failSpan(span, err)
	}

	pred, err := s.infer(ctx, vecA, vecB)
	if err != nil {
		return nil, failSpan(span, err)
	}

	if _, err := s.ledger.CreateForecast(ctx, key, pred.PredA, pred.PredB); err != nil {
		if errors.Is(err, ledger.ErrForecastExists) {
			s.log.Info().Str("key", key.String()).Msg("forecast already exists")
			span.SetAttributes(attribute.Bool("pvp.duplicate", true))
			return nil, err
		}
		return nil, failSpan(span, err)
	}

	s.log.Info().
		Str("key", key.String()).
		Float64("pred_a", pred.PredA).
		Float64("proba_a", pred.ProbaA).
		Float64("pred_b", pred.PredB).
		Float64("proba_b", pred.ProbaB).
		Msg("forecast created")

	result := contracts.NewForecastResult(key, pred)
	return &result, nil
}

// RecordActuals reconciles realized prices onto the stored forecast
func (s *Service) RecordActuals(ctx context.Context, key contracts.Key, actualA, actualB float64) (*contracts.ActualsResult, error) {
	ctx, span := s.tracer.Start(ctx, "forecast.RecordActuals", trace.WithAttributes(keyAttributes(key)...))
	defer span.End()

	f, err := s.ledger.RecordActuals(ctx, key, actualA, actualB)
	if err != nil {
		if errors.Is(err, ledger.ErrForecastNotFound) || errors.Is(err, ledger.ErrActualsRecorded) {
			span.SetAttributes(attribute.String("pvp.outcome", err.Error()))
			return nil, err
		}
		return nil, failSpan(span, err)
	}

	if errA, ok := f.ErrorA(); ok {
		errB, _ := f.ErrorB()
		s.log.Info().
			Str("key", key.String()).
			Float64("error_a", errA).
			Float64("error_b", errB).
			Int("reconcile_count", f.ReconcileCount).
			Msg("actuals recorded")
	}

	return &contracts.ActualsResult{
		SKU:     key.SKU,
		TimeKey: key.TimeKey,
		ActualA: actualA,
		ActualB: actualB,
	}, nil
}

// Get 저장된 forecast 조회
func (s *Service) Get(ctx context.Context, key contracts.Key) (*contracts.Forecast, error) {
	return s.ledger.GetForecast(ctx, key)
}

// Summary 정산 집계
func (s *Service) Summary(ctx context.Context) (*contracts.ReconciliationSummary, error) {
	ctx, span := s.tracer.Start(ctx, "forecast.Summary")
	defer span.End()

	summary, err := s.ledger.Summary(ctx)
	if err != nil {
		return nil, failSpan(span, err)
	}
	return summary, nil
}

func (s *Service) resolve(ctx context.Context, key contracts.Key) (features.Vector, features.Vector, error) {
	ctx, span := s.tracer.Start(ctx, "features.Resolve")
	defer span.End()

	vecA, vecB, err := s.resolver.Resolve(ctx, key)
	if err != nil && !errors.Is(err, features.ErrFeaturesNotFound) {
		span.SetStatus(codes.Error, err.Error())
	}
	return vecA, vecB, err
}

func (s *Service) infer(ctx context.Context, vecA, vecB features.Vector) (contracts.Prediction, error) {
	ctx, span := s.tracer.Start(ctx, "inference.Infer")
	defer span.End()

	pred, err := s.engine.Infer(ctx, vecA, vecB)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return pred, err
}

func keyAttributes(key contracts.Key) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("pvp.sku", key.SKU),
		attribute.Int64("pvp.time_key", key.TimeKey),
	}
}

// failSpan NotFound는 정상 결과이므로 오류로 표시하지 않음
func failSpan(span trace.Span, err error) error {
	if errors.Is(err, features.ErrFeaturesNotFound) {
		span.SetAttributes(attribute.Bool("pvp.features_found", false))
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
