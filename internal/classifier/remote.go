package classifier

import (
	"context"
	"encoding/json"
	"fmt"

	commonhttp "heart-risk-workers/internal/common/http"
)

type remoteRequest struct {
	Instances [][]float64 `json:"instances"`
}

type remoteResponse struct {
	Predictions json.RawMessage `json:"predictions"`
}

// Remote calls an HTTP inference endpoint speaking the TensorFlow Serving
// predict format.
type Remote struct {
	url    string
	client *commonhttp.Client
	info   Info
}

func NewRemote(url string, client *commonhttp.Client, info Info) *Remote {
	info.Type = TypeRemote
	return &Remote{url: url, client: client, info: info}
}

func (r *Remote) Predict(ctx context.Context, x []float64) (float64, error) {
	if err := checkDim(r.info, x); err != nil {
		return 0, err
	}

	var resp remoteResponse
	if err := r.client.PostJSON(ctx, r.url, remoteRequest{Instances: [][]float64{x}}, &resp); err != nil {
		return 0, fmt.Errorf("remote inference: %w", err)
	}

	score, err := firstPrediction(resp.Predictions)
	if err != nil {
		return 0, err
	}
	if r.info.Output == OutputLabel {
		return asLabel(score), nil
	}
	return score, nil
}

func (r *Remote) Info() Info {
	return r.info
}

// firstPrediction accepts {"predictions":[[s]]} and {"predictions":[s]}.
func firstPrediction(raw json.RawMessage) (float64, error) {
	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 || len(nested[0]) == 0 {
			return 0, fmt.Errorf("remote inference: empty predictions")
		}
		return nested[0][0], nil
	}

	var flat []float64
	if err := json.Unmarshal(raw, &flat); err != nil {
		return 0, fmt.Errorf("remote inference: unexpected predictions shape: %w", err)
	}
	if len(flat) == 0 {
		return 0, fmt.Errorf("remote inference: empty predictions")
	}
	return flat[0], nil
}
