// internal/workers/application/transition-status/models.go
package transitionstatus

type Input struct {
	ApplicationID string `json:"applicationId"`
	TargetStatus  string `json:"targetStatus"`

	// Certificate supplies accompanying an approval request. Details
	// carry the extracted payload of the uploaded document.
	SuppliesGrades       bool                   `json:"suppliesGrades,omitempty"`
	GradesDetails        map[string]interface{} `json:"gradesDetails,omitempty"`
	SuppliesRegistration bool                   `json:"suppliesRegistration,omitempty"`
	RegistrationDetails  map[string]interface{} `json:"registrationDetails,omitempty"`
}

type Output struct {
	ApplicationID  string `json:"applicationId"`
	Status         string `json:"status"`
	AwardID        string `json:"awardId,omitempty"`
	AwardAmount    int64  `json:"awardAmount,omitempty"`
	AuditReference string `json:"auditReference,omitempty"`
}
