package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/pvpforecast/internal/features"
	"github.com/wonny/pvpforecast/pkg/httputil"
	"github.com/wonny/pvpforecast/pkg/logger"
)

const defaultRemoteTimeout = 5 * time.Second

// RemotePipeline HTTP 스코어링 사이드카
// POST {url}/predict, POST {url}/predict_proba. 재시도 없음
type RemotePipeline struct {
	name    string
	baseURL string
	client  *httputil.Client
}

type scoreRequest struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type predictResponse struct {
	Prediction *float64 `json:"prediction"`
}

type probaResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

// NewRemotePipeline builds a remote pipeline from a validated manifest
func NewRemotePipeline(m *features.Manifest, log *logger.Logger) (*RemotePipeline, error) {
	if m.Model.URL == "" {
		return nil, fmt.Errorf("pipeline %s: remote url is required", m.Name)
	}

	timeout := m.Model.Timeout
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	if log == nil {
		log = logger.Nop()
	}

	return &RemotePipeline{
		name:    m.Name,
		baseURL: strings.TrimRight(m.Model.URL, "/"),
		client:  httputil.New(log.WithField("pipeline", m.Name), timeout),
	}, nil
}

// Name 파이프라인 이름
func (p *RemotePipeline) Name() string {
	return p.name
}

// Predict 점 예측
func (p *RemotePipeline) Predict(ctx context.Context, vec features.Vector) (float64, error) {
	var out predictResponse
	if err := p.call(ctx, "/predict", vec, &out); err != nil {
		return 0, err
	}
	if out.Prediction == nil {
		return 0, errors.New("response has no prediction")
	}
	return *out.Prediction, nil
}

// PredictProba 클래스 확률 분포
func (p *RemotePipeline) PredictProba(ctx context.Context, vec features.Vector) ([]float64, error) {
	var out probaResponse
	if err := p.call(ctx, "/predict_proba", vec, &out); err != nil {
		return nil, err
	}
	return out.Probabilities, nil
}

func (p *RemotePipeline) call(ctx context.Context, path string, vec features.Vector, dest any) error {
	req := scoreRequest{
		Columns: vec.Columns(),
		Rows:    [][]any{vec.Values()},
	}

	resp, err := p.client.PostJSON(ctx, p.baseURL+path, req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := httputil.DecodeJSON(resp, dest); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
