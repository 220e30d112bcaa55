package inference

import (
	"context"
	"fmt"
	"math"

	"github.com/wonny/pvpforecast/internal/features"
)

// LinearPipeline 회귀 헤드 + 다항 로지스틱 분류 헤드
type LinearPipeline struct {
	name       string
	regression features.LinearHead
	classes    []features.ClassHead
}

// NewLinearPipeline builds a linear pipeline from a validated manifest
func NewLinearPipeline(m *features.Manifest) (*LinearPipeline, error) {
	if m.Model.Kind != features.ModelLinear {
		return nil, fmt.Errorf("pipeline %s: model kind %q is not linear", m.Name, m.Model.Kind)
	}
	if len(m.Model.Classes) == 0 {
		return nil, fmt.Errorf("pipeline %s: no classes", m.Name)
	}

	return &LinearPipeline{
		name:       m.Name,
		regression: m.Model.Regression,
		classes:    m.Model.Classes,
	}, nil
}

// Name 파이프라인 이름
func (p *LinearPipeline) Name() string {
	return p.name
}

// Predict intercept + Σ w·x
func (p *LinearPipeline) Predict(_ context.Context, vec features.Vector) (float64, error) {
	return evalHead(p.regression, vec)
}

// PredictProba softmax over per-class logits
func (p *LinearPipeline) PredictProba(_ context.Context, vec features.Vector) ([]float64, error) {
	logits := make([]float64, len(p.classes))
	maxLogit := math.Inf(-1)
	for i, c := range p.classes {
		z, err := evalHead(c.LinearHead, vec)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", c.Label, err)
		}
		logits[i] = z
		maxLogit = math.Max(maxLogit, z)
	}

	// max 차감으로 exp overflow 방지
	var sum float64
	for i, z := range logits {
		logits[i] = math.Exp(z - maxLogit)
		sum += logits[i]
	}
	for i := range logits {
		logits[i] /= sum
	}
	return logits, nil
}

// evalHead 매니페스트 컬럼 순서로 합산 (결과 재현성)
func evalHead(head features.LinearHead, vec features.Vector) (float64, error) {
	sum := head.Intercept
	for _, f := range vec.Features {
		if w, ok := head.Weights[f.Column]; ok {
			x, ok := f.Float()
			if !ok {
				return 0, fmt.Errorf("column %q is not numeric", f.Column)
			}
			sum += w * x
		}
		if table, ok := head.Categorical[f.Column]; ok {
			// 학습 시 보지 못한 값은 가중치 0
			sum += table[categoryLabel(f)]
		}
	}

	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0, ErrNonFinite
	}
	return sum, nil
}

func categoryLabel(f features.Feature) string {
	if s, ok := f.Text(); ok {
		return s
	}
	return fmt.Sprint(f.Value)
}
