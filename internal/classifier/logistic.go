package classifier

import (
	"context"
	"math"
)

// Logistic is a logistic regression: sigmoid(w.x + b).
type Logistic struct {
	weights []float64
	bias    float64
	info    Info
}

func NewLogistic(weights []float64, bias float64, info Info) *Logistic {
	info.Type = TypeLogistic
	info.InputDim = len(weights)
	return &Logistic{weights: weights, bias: bias, info: info}
}

func (l *Logistic) Predict(_ context.Context, x []float64) (float64, error) {
	if err := checkDim(l.info, x); err != nil {
		return 0, err
	}

	z := l.bias
	for i, w := range l.weights {
		z += w * x[i]
	}
	p := sigmoid(z)

	if l.info.Output == OutputLabel {
		return asLabel(p), nil
	}
	return p, nil
}

func (l *Logistic) Info() Info {
	return l.info
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
