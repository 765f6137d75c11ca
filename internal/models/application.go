// internal/models/application.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a scholarship application.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusGranted  Status = "granted"
)

// ParseStatus normalizes a status token from workflow variables.
// Accepts any casing ("APPROVED", "Approved", "approved").
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	case StatusGranted:
		return StatusGranted, nil
	default:
		return "", fmt.Errorf("unknown application status %q", s)
	}
}

func (s Status) String() string { return string(s) }

// Application is one applicant's submission for a funding cycle.
// Mutated only through the transition controller; never deleted.
type Application struct {
	ID          string                 `json:"id"`
	ApplicantID string                 `json:"applicantId"`
	CycleID     string                 `json:"cycleId"`
	Details     map[string]interface{} `json:"details"`
	Status      Status                 `json:"status"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// AcademicLevel returns the free-form academic-level token stored in the
// application details, or "" when absent.
func (a *Application) AcademicLevel() string {
	if a.Details == nil {
		return ""
	}
	if v, ok := a.Details["academicLevel"].(string); ok {
		return v
	}
	return ""
}

// RecipientName returns the applicant's display name from the stored
// details, falling back to the applicant reference when absent.
func (a *Application) RecipientName() string {
	if a.Details != nil {
		if v, ok := a.Details["fullName"].(string); ok && v != "" {
			return v
		}
	}
	return a.ApplicantID
}
