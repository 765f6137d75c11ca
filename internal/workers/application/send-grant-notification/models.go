// internal/workers/application/send-grant-notification/models.go
package sendgrantnotification

type Input struct {
	ApplicationID  string `json:"applicationId"`
	AwardID        string `json:"awardId,omitempty"`
	AwardAmount    int64  `json:"awardAmount,omitempty"`
	AuditReference string `json:"auditReference,omitempty"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "failed", "disabled"
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
