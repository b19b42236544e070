// internal/models/prediction.go
package models

import (
	"time"

	"heart-risk-workers/internal/survey"
)

// PredictionRecord is one row of prediction_log.
type PredictionRecord struct {
	ID               string        `json:"id"`
	RespondentID     string        `json:"respondentId,omitempty"`
	Survey           survey.Record `json:"survey"`
	RiskScore        float64       `json:"riskScore"`
	RiskLabel        string        `json:"riskLabel"`
	Policy           string        `json:"policy"`            // "threshold" or "equality"
	Variant          string        `json:"variant"`           // "direct" or "preprocessed"
	ModelVersion     string        `json:"modelVersion"`
	TransformVersion string        `json:"transformVersion,omitempty"`
	Source           string        `json:"source"`            // "api", "worker", "cli"
	CreatedAt        time.Time     `json:"createdAt"`
}

// PredictionEvent is the document indexed for analytics. It carries the
// answers flattened so dashboards can aggregate on them.
type PredictionEvent struct {
	PredictionID string             `json:"predictionId"`
	RespondentID string             `json:"respondentId,omitempty"`
	RiskScore    float64            `json:"riskScore"`
	RiskLabel    string             `json:"riskLabel"`
	HighRisk     bool               `json:"highRisk"`
	Variant      string             `json:"variant"`
	ModelVersion string             `json:"modelVersion"`
	Source       string             `json:"source"`
	Answers      map[string]float64 `json:"answers"`
	Timestamp    time.Time          `json:"@timestamp"`
}

// NewPredictionEvent derives the index document from a stored record.
func NewPredictionEvent(rec *PredictionRecord, highRisk bool) PredictionEvent {
	return PredictionEvent{
		PredictionID: rec.ID,
		RespondentID: rec.RespondentID,
		RiskScore:    rec.RiskScore,
		RiskLabel:    rec.RiskLabel,
		HighRisk:     highRisk,
		Variant:      rec.Variant,
		ModelVersion: rec.ModelVersion,
		Source:       rec.Source,
		Answers:      rec.Survey.Features(),
		Timestamp:    rec.CreatedAt,
	}
}
