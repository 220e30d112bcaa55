package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pvpforecast/internal/features"
	"github.com/wonny/pvpforecast/pkg/logger"
)

func remoteManifest(url string) *features.Manifest {
	return &features.Manifest{
		Name:    "B",
		Columns: []string{"region", "week"},
		Dtypes:  map[string]features.Dtype{"region": features.DtypeCategory, "week": features.DtypeInt32},
		Model:   features.ModelSpec{Kind: features.ModelRemote, URL: url + "/"},
	}
}

func remoteVector() features.Vector {
	return features.Vector{
		Pipeline: "B",
		Features: []features.Feature{
			{Column: "region", Dtype: features.DtypeCategory, Value: "north"},
			{Column: "week", Dtype: features.DtypeInt32, Value: int32(1)},
		},
	}
}

func TestRemotePipeline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req scoreRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"region", "week"}, req.Columns)
		if assert.Len(t, req.Rows, 1) {
			assert.Equal(t, []any{"north", float64(1)}, req.Rows[0])
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/predict":
			_, _ = w.Write([]byte(`{"prediction": 10.49}`))
		case "/predict_proba":
			_, _ = w.Write([]byte(`{"probabilities": [0.3, 0.7]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p, err := NewPipeline(remoteManifest(server.URL), logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "B", p.Name())

	pred, err := p.Predict(context.Background(), remoteVector())
	require.NoError(t, err)
	assert.Equal(t, 10.49, pred)

	proba, err := p.PredictProba(context.Background(), remoteVector())
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.7}, proba)
}

func TestRemotePipeline_ServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	p, err := NewRemotePipeline(remoteManifest(server.URL), logger.Nop())
	require.NoError(t, err)

	_, err = p.Predict(context.Background(), remoteVector())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemotePipeline_MissingPrediction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	p, err := NewRemotePipeline(remoteManifest(server.URL), logger.Nop())
	require.NoError(t, err)

	_, err = p.Predict(context.Background(), remoteVector())
	assert.Error(t, err)
}

func TestRemotePipeline_RequiresURL(t *testing.T) {
	_, err := NewRemotePipeline(&features.Manifest{Name: "B"}, logger.Nop())
	assert.Error(t, err)
}

func TestRemotePipeline_NilLogger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"prediction": 3.5}`))
	}))
	defer server.Close()

	p, err := NewRemotePipeline(remoteManifest(server.URL), nil)
	require.NoError(t, err)

	got, err := p.Predict(context.Background(), remoteVector())
	require.NoError(t, err)
	assert.Equal(t, 3.5, got)
}
