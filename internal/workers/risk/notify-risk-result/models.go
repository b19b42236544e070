// internal/workers/risk/notify-risk-result/models.go
package notifyriskresult

import "heart-risk-workers/internal/models"

type Input struct {
	PredictionID string  `json:"predictionId"`
	RespondentID string  `json:"respondentId,omitempty"`
	RiskLabel    string  `json:"riskLabel"`
	RiskScore    float64 `json:"riskScore"`
	Email        string  `json:"email,omitempty"`
	Phone        string  `json:"phone,omitempty"` // E.164
}

type Output struct {
	Notified      bool                  `json:"notified"`
	Channels      []string              `json:"channels"`
	Notifications []models.Notification `json:"notifications"`
}

func GetInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"predictionId", "riskLabel"},
		"properties": map[string]interface{}{
			"predictionId": map[string]interface{}{"type": "string", "minLength": 1},
			"respondentId": map[string]interface{}{"type": "string"},
			"riskLabel":    map[string]interface{}{"type": "string", "enum": []interface{}{"High Risk", "Low Risk"}},
			"riskScore":    map[string]interface{}{"type": "number"},
			"email":        map[string]interface{}{"type": "string"},
			"phone":        map[string]interface{}{"type": "string"},
		},
	}
}
