// Package classifier runs the pre-trained heart risk model. Local models are
// loaded from a JSON artifact; a remote model delegates to an HTTP inference
// endpoint. All implementations are safe for concurrent use.
package classifier

import (
	"context"

	"heart-risk-workers/internal/common/errors"
)

const (
	TypeLogistic = "logistic_regression"
	TypeDense    = "dense_network"
	TypeRemote   = "remote"
)

// Output kinds. A probability model emits a score in [0,1]; a label model
// emits the hard class 0 or 1.
const (
	OutputProbability = "probability"
	OutputLabel       = "label"
)

// Feature layouts a model can be trained on.
const (
	LayoutDirect       = "direct"
	LayoutPreprocessed = "preprocessed"
)

// Info describes a loaded model.
type Info struct {
	Type     string `json:"type"`
	Version  string `json:"version"`
	Layout   string `json:"featureLayout"`
	InputDim int    `json:"inputDim"`
	Output   string `json:"output"`
}

// Classifier maps a feature vector to a scalar risk score.
type Classifier interface {
	Predict(ctx context.Context, x []float64) (float64, error)
	Info() Info
}

func checkDim(info Info, x []float64) error {
	if len(x) != info.InputDim {
		return errors.NewFeatureMismatchError(info.InputDim, len(x))
	}
	return nil
}

// asLabel collapses a probability into the hard class for label models.
func asLabel(p float64) float64 {
	if p >= 0.5 {
		return 1
	}
	return 0
}
