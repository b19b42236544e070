package classifier

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heart-risk-workers/internal/common/errors"
	commonhttp "heart-risk-workers/internal/common/http"
)

func TestLogistic_Predict(t *testing.T) {
	ctx := context.Background()
	model := NewLogistic([]float64{1, -1}, 0.5, Info{Layout: LayoutDirect, Output: OutputProbability})

	score, err := model.Predict(ctx, []float64{2, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-1.5)), score, 1e-12)

	_, err = model.Predict(ctx, []float64{1, 2, 3})
	assert.True(t, stderrors.Is(err, errors.ErrFeatureMismatch))
}

func TestLogistic_LabelOutput(t *testing.T) {
	model := NewLogistic([]float64{1}, 0, Info{Output: OutputLabel})

	high, err := model.Predict(context.Background(), []float64{3})
	require.NoError(t, err)
	low, err := model.Predict(context.Background(), []float64{-3})
	require.NoError(t, err)

	assert.Equal(t, 1.0, high)
	assert.Equal(t, 0.0, low)
}

func TestDenseNetwork_Predict(t *testing.T) {
	layers := []Layer{
		{
			Weights:    [][]float64{{1, -1}, {1, 1}},
			Bias:       []float64{0, 0},
			Activation: "relu",
		},
		{
			Weights:    [][]float64{{1}, {2}},
			Bias:       []float64{-1},
			Activation: "sigmoid",
		},
	}
	model, err := NewDenseNetwork(layers, Info{Output: OutputProbability})
	require.NoError(t, err)
	assert.Equal(t, 2, model.Info().InputDim)

	// hidden = relu([1+2, -1+2]) = [3, 1]; out = sigmoid(3 + 2 - 1)
	score, err := model.Predict(context.Background(), []float64{1, 2})
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-4)), score, 1e-12)
}

func TestNewDenseNetwork_ShapeErrors(t *testing.T) {
	tests := []struct {
		name   string
		layers []Layer
	}{
		{"no layers", nil},
		{"ragged weights", []Layer{{Weights: [][]float64{{1, 2}, {1}}, Bias: []float64{0, 0}}}},
		{"broken chain", []Layer{
			{Weights: [][]float64{{1, 2}}, Bias: []float64{0, 0}},
			{Weights: [][]float64{{1}}, Bias: []float64{0}},
		}},
		{"multi output", []Layer{{Weights: [][]float64{{1, 2}}, Bias: []float64{0, 0}}}},
		{"unknown activation", []Layer{{Weights: [][]float64{{1}}, Bias: []float64{0}, Activation: "softmax"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDenseNetwork(tt.layers, Info{})
			assert.Error(t, err)
		})
	}
}

func TestRemote_Predict(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     float64
	}{
		{"nested predictions", `{"predictions": [[0.83]]}`, 0.83},
		{"flat predictions", `{"predictions": [0.21]}`, 0.21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				var req remoteRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, [][]float64{{1, 2, 3}}, req.Instances)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			model := NewRemote(server.URL, commonhttp.NewClient(time.Second), Info{InputDim: 3, Output: OutputProbability})
			score, err := model.Predict(context.Background(), []float64{1, 2, 3})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, score, 1e-12)
		})
	}
}

func TestRemote_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		model := NewRemote(server.URL, commonhttp.NewClient(time.Second), Info{InputDim: 1})
		_, err := model.Predict(context.Background(), []float64{1})
		require.Error(t, err)

		var statusErr *commonhttp.StatusError
		require.True(t, stderrors.As(err, &statusErr))
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	})

	t.Run("empty predictions", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"predictions": []}`))
		}))
		defer server.Close()

		model := NewRemote(server.URL, commonhttp.NewClient(time.Second), Info{InputDim: 1})
		_, err := model.Predict(context.Background(), []float64{1})
		assert.Error(t, err)
	})

	t.Run("dimension checked before the call", func(t *testing.T) {
		model := NewRemote("http://127.0.0.1:0", commonhttp.NewClient(time.Second), Info{InputDim: 16})
		_, err := model.Predict(context.Background(), []float64{1})
		assert.True(t, stderrors.Is(err, errors.ErrFeatureMismatch))
	})
}

func TestRead_Artifacts(t *testing.T) {
	t.Run("logistic", func(t *testing.T) {
		c, err := Read(strings.NewReader(`{"type":"logistic_regression","version":"v1","feature_layout":"direct",
			"input_dim":2,"output":"probability","weights":[0.5,0.25],"bias":-1}`))
		require.NoError(t, err)
		info := c.Info()
		assert.Equal(t, TypeLogistic, info.Type)
		assert.Equal(t, "v1", info.Version)
		assert.Equal(t, LayoutDirect, info.Layout)
		assert.Equal(t, 2, info.InputDim)
	})

	t.Run("output defaults to probability", func(t *testing.T) {
		c, err := Read(strings.NewReader(`{"type":"logistic_regression","feature_layout":"preprocessed","weights":[1]}`))
		require.NoError(t, err)
		assert.Equal(t, OutputProbability, c.Info().Output)
	})

	invalid := map[string]string{
		"unknown type":      `{"type":"random_forest","feature_layout":"direct"}`,
		"unknown layout":    `{"type":"logistic_regression","feature_layout":"columnar","weights":[1]}`,
		"unknown output":    `{"type":"logistic_regression","feature_layout":"direct","output":"logits","weights":[1]}`,
		"no weights":        `{"type":"logistic_regression","feature_layout":"direct"}`,
		"input_dim differs": `{"type":"logistic_regression","feature_layout":"direct","input_dim":16,"weights":[1,2]}`,
		"bad json":          `{"type":`,
		"misspelled key":    `{"type":"logistic_regression","feature_layot":"direct","weights":[1]}`,
		"unknown layer key": `{"type":"dense_network","feature_layout":"direct","layers":[{"weights":[[1]],"bias":[0],"activaton":"relu"}]}`,
	}
	for name, body := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(body))
			assert.True(t, stderrors.Is(err, errors.ErrInvalidArtifact), "got %v", err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, stderrors.Is(err, errors.ErrMissingArtifact))

	path := filepath.Join(t.TempDir(), "classifier.json")
	a := &Artifact{
		Type: TypeDense, Version: "keras-1", FeatureLayout: LayoutDirect, InputDim: 1, Output: OutputLabel,
		Layers: []Layer{{Weights: [][]float64{{2}}, Bias: []float64{0}, Activation: "sigmoid"}},
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, a.Write(f))
	require.NoError(t, f.Close())

	c, err := LoadFile(path)
	require.NoError(t, err)
	score, err := c.Predict(context.Background(), []float64{1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}
