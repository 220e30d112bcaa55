package inference

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/pvpforecast/internal/contracts"
	"github.com/wonny/pvpforecast/internal/features"
)

// Observer 파이프라인 호출 결과 수집 (metrics)
type Observer interface {
	ObserveInference(pipeline string, duration time.Duration, err error)
}

// Engine A/B 파이프라인 동시 추론
// 생성 후 불변. 요청 간 공유
type Engine struct {
	a, b     Pipeline
	observer Observer
	log      zerolog.Logger
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithObserver records every pipeline call
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

// NewEngine 새 엔진 생성
func NewEngine(a, b Pipeline, log zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		a:   a,
		b:   b,
		log: log.With().Str("component", "inference.engine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Infer scores vecA on pipeline A and vecB on pipeline B.
// 둘 다 성공해야 결과 반환. 하나라도 실패하면 부분 결과 없음
func (e *Engine) Infer(ctx context.Context, vecA, vecB features.Vector) (contracts.Prediction, error) {
	var pred contracts.Prediction

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, c, err := e.score(gctx, e.a, vecA)
		pred.PredA, pred.ProbaA = p, c
		return err
	})
	g.Go(func() error {
		p, c, err := e.score(gctx, e.b, vecB)
		pred.PredB, pred.ProbaB = p, c
		return err
	})

	if err := g.Wait(); err != nil {
		e.log.Warn().Err(err).Msg("inference failed")
		return contracts.Prediction{}, err
	}

	return pred, nil
}

func (e *Engine) score(ctx context.Context, p Pipeline, vec features.Vector) (pred, conf float64, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &InferenceError{Pipeline: p.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
		if e.observer != nil {
			e.observer.ObserveInference(p.Name(), time.Since(start), err)
		}
	}()

	pred, err = p.Predict(ctx, vec)
	if err != nil {
		return 0, 0, &InferenceError{Pipeline: p.Name(), Err: err}
	}
	if math.IsNaN(pred) || math.IsInf(pred, 0) {
		return 0, 0, &InferenceError{Pipeline: p.Name(), Err: ErrNonFinite}
	}

	proba, err := p.PredictProba(ctx, vec)
	if err != nil {
		return 0, 0, &InferenceError{Pipeline: p.Name(), Err: err}
	}

	conf, err = Confidence(proba)
	if err != nil {
		return 0, 0, &InferenceError{Pipeline: p.Name(), Err: err}
	}

	return pred, conf, nil
}
