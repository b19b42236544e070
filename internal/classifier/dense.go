package classifier

import (
	"context"
	"fmt"
	"math"
)

// Layer is one fully connected layer. Weights are indexed [input][output].
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

// DenseNetwork is a feed-forward network ending in a single output unit,
// the shape of a Keras Sequential model of Dense layers.
type DenseNetwork struct {
	layers []Layer
	info   Info
}

var activations = map[string]func(float64) float64{
	"relu":    func(v float64) float64 { return math.Max(0, v) },
	"sigmoid": sigmoid,
	"tanh":    math.Tanh,
	"linear":  func(v float64) float64 { return v },
	"":        func(v float64) float64 { return v },
}

// NewDenseNetwork checks the layer shapes chain from inputDim down to one unit.
func NewDenseNetwork(layers []Layer, info Info) (*DenseNetwork, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("network has no layers")
	}

	in := len(layers[0].Weights)
	info.Type = TypeDense
	info.InputDim = in

	for i, layer := range layers {
		if len(layer.Weights) != in {
			return nil, fmt.Errorf("layer %d expects %d inputs, previous layer produces %d", i, len(layer.Weights), in)
		}
		out := len(layer.Bias)
		for r, row := range layer.Weights {
			if len(row) != out {
				return nil, fmt.Errorf("layer %d weight row %d has %d columns, bias has %d", i, r, len(row), out)
			}
		}
		if _, ok := activations[layer.Activation]; !ok {
			return nil, fmt.Errorf("layer %d: unsupported activation %q", i, layer.Activation)
		}
		in = out
	}
	if in != 1 {
		return nil, fmt.Errorf("network must end in a single output unit, got %d", in)
	}

	return &DenseNetwork{layers: layers, info: info}, nil
}

func (n *DenseNetwork) Predict(_ context.Context, x []float64) (float64, error) {
	if err := checkDim(n.info, x); err != nil {
		return 0, err
	}

	act := x
	for _, layer := range n.layers {
		f := activations[layer.Activation]
		next := make([]float64, len(layer.Bias))
		for j := range next {
			sum := layer.Bias[j]
			for i, v := range act {
				sum += v * layer.Weights[i][j]
			}
			next[j] = f(sum)
		}
		act = next
	}

	if n.info.Output == OutputLabel {
		return asLabel(act[0]), nil
	}
	return act[0], nil
}

func (n *DenseNetwork) Info() Info {
	return n.info
}
