// internal/workers/risk/predict-heart-risk/models.go
package predictheartrisk

type Input struct {
	RespondentID string                 `json:"respondentId"`
	Survey       map[string]interface{} `json:"survey"`
}

type Output struct {
	PredictionID     string  `json:"predictionId"`
	RiskLabel        string  `json:"riskLabel"`
	RiskScore        float64 `json:"riskScore"`
	HighRisk         bool    `json:"highRisk"`
	RiskMessage      string  `json:"riskMessage"`
	Policy           string  `json:"policy"`
	Variant          string  `json:"variant"`
	ModelVersion     string  `json:"modelVersion"`
	TransformVersion string  `json:"transformVersion,omitempty"`
	CacheHit         bool    `json:"cacheHit"`
	Persisted        bool    `json:"persisted"`
	PredictedAt      string  `json:"predictedAt"` // ISO 8601
}

// GetInputSchema describes the job variables. The survey object itself is
// validated against the survey schema.
func GetInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"survey"},
		"properties": map[string]interface{}{
			"respondentId": map[string]interface{}{"type": "string"},
			"survey":       map[string]interface{}{"type": "object"},
		},
	}
}
