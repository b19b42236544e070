// Package decision turns a classifier score into a risk label.
package decision

import (
	"fmt"

	"heart-risk-workers/internal/classifier"
	"heart-risk-workers/internal/common/config"
)

type Label string

const (
	HighRisk Label = "High Risk"
	LowRisk  Label = "Low Risk"
)

// IsHigh reports whether l is the high risk label.
func (l Label) IsHigh() bool {
	return l == HighRisk
}

// Message is the sentence shown to a respondent for l.
func (l Label) Message() string {
	if l == HighRisk {
		return "High Risk: The model predicts a high risk of heart disease."
	}
	return "Low Risk: The model predicts a low risk of heart disease."
}

// Policy maps a score to a label.
type Policy interface {
	Decide(score float64) Label
	Name() string
}

// Threshold labels High Risk when score >= Cutoff. Use it for probability outputs.
type Threshold struct {
	Cutoff float64
}

func (p Threshold) Decide(score float64) Label {
	if score >= p.Cutoff {
		return HighRisk
	}
	return LowRisk
}

func (p Threshold) Name() string {
	return config.PolicyThreshold
}

// Equality labels High Risk only when score is exactly 1. Use it for hard
// class outputs; a probability of 0.97 is Low Risk under this policy.
type Equality struct{}

func (Equality) Decide(score float64) Label {
	if score == 1 {
		return HighRisk
	}
	return LowRisk
}

func (Equality) Name() string {
	return config.PolicyEquality
}

// ForModel resolves the configured policy name against the model's output
// kind. "auto" picks threshold for probability models and equality for label
// models.
func ForModel(policy string, threshold float64, output string) (Policy, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold must be in (0,1), got %v", threshold)
	}

	switch policy {
	case config.PolicyThreshold:
		return Threshold{Cutoff: threshold}, nil
	case config.PolicyEquality:
		return Equality{}, nil
	case config.PolicyAuto, "":
		switch output {
		case classifier.OutputLabel:
			return Equality{}, nil
		case classifier.OutputProbability, "":
			return Threshold{Cutoff: threshold}, nil
		default:
			return nil, fmt.Errorf("unknown model output %q", output)
		}
	default:
		return nil, fmt.Errorf("unknown decision policy %q", policy)
	}
}
