// internal/models/award.go
package models

import "time"

// AwardRecord is the durable record that an application was granted
// funding. At most one exists per application; never updated or deleted.
type AwardRecord struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	Amount        int64     `json:"amount"`
	RecipientName string    `json:"recipientName"`
	CreatedAt     time.Time `json:"createdAt"`
}
