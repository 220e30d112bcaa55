package inference

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pvpforecast/internal/features"
)

type fakePipeline struct {
	name       string
	pred       float64
	proba      []float64
	predictErr error
	probaErr   error
	panicMsg   string

	mu   sync.Mutex
	seen []string
}

func (p *fakePipeline) Name() string { return p.name }

func (p *fakePipeline) Predict(_ context.Context, vec features.Vector) (float64, error) {
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	p.mu.Lock()
	p.seen = vec.Columns()
	p.mu.Unlock()
	return p.pred, p.predictErr
}

func (p *fakePipeline) PredictProba(_ context.Context, _ features.Vector) ([]float64, error) {
	return p.proba, p.probaErr
}

type recordingObserver struct {
	mu    sync.Mutex
	calls map[string]error
}

func (o *recordingObserver) ObserveInference(pipeline string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == nil {
		o.calls = map[string]error{}
	}
	o.calls[pipeline] = err
}

func vector(pipeline string, cols ...string) features.Vector {
	v := features.Vector{Pipeline: pipeline}
	for _, c := range cols {
		v.Features = append(v.Features, features.Feature{Column: c, Dtype: features.DtypeFloat64, Value: 1.0})
	}
	return v
}

func TestEngine_Infer(t *testing.T) {
	a := &fakePipeline{name: "A", pred: 10.1, proba: []float64{0.2, 0.8}}
	b := &fakePipeline{name: "B", pred: 10.3, proba: []float64{0.6, 0.3, 0.1}}
	obs := &recordingObserver{}

	engine := NewEngine(a, b, zerolog.Nop(), WithObserver(obs))

	pred, err := engine.Infer(context.Background(), vector("A", "a1", "a2"), vector("B", "b1"))
	require.NoError(t, err)

	assert.Equal(t, 10.1, pred.PredA)
	assert.Equal(t, 0.8, pred.ProbaA)
	assert.Equal(t, 10.3, pred.PredB)
	assert.Equal(t, 0.6, pred.ProbaB)

	// 스키마는 섞이지 않음
	assert.Equal(t, []string{"a1", "a2"}, a.seen)
	assert.Equal(t, []string{"b1"}, b.seen)

	assert.Len(t, obs.calls, 2)
	assert.NoError(t, obs.calls["A"])
	assert.NoError(t, obs.calls["B"])
}

func TestEngine_Infer_Failures(t *testing.T) {
	ok := func(name string) *fakePipeline {
		return &fakePipeline{name: name, pred: 1, proba: []float64{1}}
	}

	tests := []struct {
		name     string
		a, b     *fakePipeline
		pipeline string
		target   error
	}{
		{
			name:     "A predict fails",
			a:        &fakePipeline{name: "A", predictErr: errors.New("shape mismatch")},
			b:        ok("B"),
			pipeline: "A",
		},
		{
			name:     "B predict_proba fails",
			a:        ok("A"),
			b:        &fakePipeline{name: "B", pred: 1, probaErr: errors.New("no classes")},
			pipeline: "B",
		},
		{
			name:     "empty distribution",
			a:        ok("A"),
			b:        &fakePipeline{name: "B", pred: 1, proba: []float64{}},
			pipeline: "B",
			target:   ErrEmptyDistribution,
		},
		{
			name:     "NaN prediction",
			a:        &fakePipeline{name: "A", pred: math.NaN(), proba: []float64{1}},
			b:        ok("B"),
			pipeline: "A",
			target:   ErrNonFinite,
		},
		{
			name:     "panic becomes error",
			a:        ok("A"),
			b:        &fakePipeline{name: "B", panicMsg: "index out of range"},
			pipeline: "B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(tt.a, tt.b, zerolog.Nop())

			pred, err := engine.Infer(context.Background(), vector("A", "x"), vector("B", "y"))
			require.Error(t, err)
			assert.Zero(t, pred)

			var infErr *InferenceError
			require.ErrorAs(t, err, &infErr)
			assert.Equal(t, tt.pipeline, infErr.Pipeline)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestEngine_ConcurrentInfer(t *testing.T) {
	engine := NewEngine(
		&fakePipeline{name: "A", pred: 1, proba: []float64{0.9, 0.1}},
		&fakePipeline{name: "B", pred: 2, proba: []float64{0.4, 0.6}},
		zerolog.Nop(),
	)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pred, err := engine.Infer(context.Background(), features.Vector{Pipeline: "A"}, features.Vector{Pipeline: "B"})
			assert.NoError(t, err)
			assert.Equal(t, 0.9, pred.ProbaA)
			assert.Equal(t, 0.6, pred.ProbaB)
		}()
	}
	wg.Wait()
}

func TestConfidence(t *testing.T) {
	c, err := Confidence([]float64{0.1, 0.7, 0.2})
	require.NoError(t, err)
	assert.Equal(t, 0.7, c)

	_, err = Confidence(nil)
	assert.ErrorIs(t, err, ErrEmptyDistribution)

	_, err = Confidence([]float64{0.5, math.Inf(1)})
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestInferenceError(t *testing.T) {
	inner := errors.New("boom")
	err := &InferenceError{Pipeline: "B", Err: inner}
	assert.Equal(t, "pipeline B: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}
