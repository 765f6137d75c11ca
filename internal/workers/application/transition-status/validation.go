// internal/workers/application/transition-status/validation.go
package transitionstatus

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate checks the job input before any database work happens.
// Target status casing is normalized later; here we only reject values
// that can never map to a lifecycle status.
func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ApplicationID, validation.Required),
		validation.Field(&in.TargetStatus, validation.Required,
			validation.By(knownStatus)),
	)
}

func knownStatus(value interface{}) error {
	s, _ := value.(string)
	switch normalizeStatus(s) {
	case "approved", "rejected", "granted":
		return nil
	}
	return validation.NewError("validation_unknown_status", "must be one of approved, rejected, granted")
}
