package classifier

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"heart-risk-workers/internal/common/errors"
)

// Artifact is the on-disk JSON form of a local classifier.
type Artifact struct {
	Type          string    `json:"type"`
	Version       string    `json:"version"`
	FeatureLayout string    `json:"feature_layout"`
	InputDim      int       `json:"input_dim"`
	Output        string    `json:"output"`
	Weights       []float64 `json:"weights,omitempty"`
	Bias          float64   `json:"bias,omitempty"`
	Layers        []Layer   `json:"layers,omitempty"`
}

// Builder turns a decoded artifact into a classifier.
type Builder func(a *Artifact, info Info) (Classifier, error)

// Builders is keyed by artifact type.
var Builders = map[string]Builder{
	TypeLogistic: func(a *Artifact, info Info) (Classifier, error) {
		if len(a.Weights) == 0 {
			return nil, fmt.Errorf("logistic regression has no weights")
		}
		return NewLogistic(a.Weights, a.Bias, info), nil
	},
	TypeDense: func(a *Artifact, info Info) (Classifier, error) {
		return NewDenseNetwork(a.Layers, info)
	},
}

// Read decodes and builds a classifier artifact.
func Read(r io.Reader) (Classifier, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, errors.NewInvalidArtifactError("classifier", err.Error())
	}
	return Build(&a)
}

// Build validates the artifact header and dispatches on its type.
func Build(a *Artifact) (Classifier, error) {
	build, ok := Builders[a.Type]
	if !ok {
		return nil, errors.NewInvalidArtifactError("classifier", fmt.Sprintf("unknown classifier type %q", a.Type))
	}

	switch a.FeatureLayout {
	case LayoutDirect, LayoutPreprocessed:
	default:
		return nil, errors.NewInvalidArtifactError("classifier", fmt.Sprintf("unknown feature_layout %q", a.FeatureLayout))
	}

	output := a.Output
	if output == "" {
		output = OutputProbability
	}
	if output != OutputProbability && output != OutputLabel {
		return nil, errors.NewInvalidArtifactError("classifier", fmt.Sprintf("unknown output %q", a.Output))
	}

	c, err := build(a, Info{Version: a.Version, Layout: a.FeatureLayout, Output: output})
	if err != nil {
		return nil, errors.NewInvalidArtifactError("classifier", err.Error())
	}

	if a.InputDim != 0 && a.InputDim != c.Info().InputDim {
		return nil, errors.NewInvalidArtifactError("classifier",
			fmt.Sprintf("input_dim %d disagrees with parameters sized for %d", a.InputDim, c.Info().InputDim))
	}
	return c, nil
}

// LoadFile reads the classifier artifact at path.
func LoadFile(path string) (Classifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewMissingArtifactError("classifier", path, err)
	}
	defer f.Close()

	c, err := Read(f)
	if err != nil {
		if std := errors.AsStandardError(err); std != nil {
			std.WithMetadata("path", path)
		}
		return nil, err
	}
	return c, nil
}

// Write encodes an artifact as indented JSON.
func (a *Artifact) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}
