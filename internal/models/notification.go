// internal/models/notification.go
package models

type Notification struct {
	ID           string `json:"id"`
	PredictionID string `json:"predictionId"`
	RespondentID string `json:"respondentId,omitempty"`
	Channel      string `json:"channel"` // "email", "sms"
	Status       string `json:"status"`  // "sent", "failed", "disabled", "skipped"
	MessageID    string `json:"messageId,omitempty"`
	Error        string `json:"error,omitempty"`
	SentAt       string `json:"sentAt,omitempty"`
}

type NotificationTemplate struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	HTMLBody string `json:"htmlBody,omitempty"`
}
