// internal/workers/risk/notify-risk-result/templates.go
package notifyriskresult

import (
	"fmt"

	"heart-risk-workers/internal/decision"
	"heart-risk-workers/internal/models"
)

const emailSubject = "Your heart health screening result"

func emailTemplate(input *Input) models.NotificationTemplate {
	label := decision.Label(input.RiskLabel)
	body := fmt.Sprintf("%s\n\nRisk score: %.2f\nReference: %s\n\n"+
		"This screening is not a diagnosis. Please book an appointment with your doctor to discuss the result.",
		label.Message(), input.RiskScore, input.PredictionID)
	html := fmt.Sprintf("<p><strong>%s</strong></p><p>Risk score: %.2f<br>Reference: %s</p>"+
		"<p>This screening is not a diagnosis. Please book an appointment with your doctor to discuss the result.</p>",
		label.Message(), input.RiskScore, input.PredictionID)
	return models.NotificationTemplate{Subject: emailSubject, Body: body, HTMLBody: html}
}

func smsMessage(input *Input) string {
	return fmt.Sprintf("Heart screening: %s (ref %s). Please contact your doctor.", input.RiskLabel, input.PredictionID)
}
