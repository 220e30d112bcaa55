package inference

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/wonny/pvpforecast/internal/features"
	"github.com/wonny/pvpforecast/pkg/logger"
)

// Pipeline 학습된 스코어링 파이프라인 (블랙박스)
// ⭐ SSOT: predict / predict_proba 두 기능만 사용. 동시 호출에 안전해야 함
type Pipeline interface {
	Name() string
	Predict(ctx context.Context, vec features.Vector) (float64, error)
	PredictProba(ctx context.Context, vec features.Vector) ([]float64, error)
}

// InferenceError 파이프라인 호출 실패
type InferenceError struct {
	Pipeline string
	Err      error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Pipeline, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

var (
	ErrEmptyDistribution = errors.New("empty probability distribution")
	ErrNonFinite         = errors.New("non-finite output")
)

// Confidence 클래스 확률 분포의 최댓값
func Confidence(proba []float64) (float64, error) {
	if len(proba) == 0 {
		return 0, ErrEmptyDistribution
	}

	best := math.Inf(-1)
	for _, p := range proba {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return 0, ErrNonFinite
		}
		if p > best {
			best = p
		}
	}
	return best, nil
}

// NewPipeline builds the pipeline described by the manifest's model section
func NewPipeline(m *features.Manifest, log *logger.Logger) (Pipeline, error) {
	switch m.Model.Kind {
	case features.ModelLinear:
		return NewLinearPipeline(m)
	case features.ModelRemote:
		return NewRemotePipeline(m, log)
	}
	return nil, fmt.Errorf("pipeline %s: unknown model kind %q", m.Name, m.Model.Kind)
}
