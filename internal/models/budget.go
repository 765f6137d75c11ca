// internal/models/budget.go
package models

// FundingCycle is a bounded application period with at most one budget.
// Supplied by configuration collaborators; read-only to this engine.
type FundingCycle struct {
	ID       string  `json:"id"`
	BudgetID *string `json:"budgetId,omitempty"`
}

// Budget holds the total and remaining fundable amount for a cycle.
// RemainingAmount never goes below zero.
type Budget struct {
	ID              string `json:"id"`
	TotalAmount     int64  `json:"totalAmount"`
	RemainingAmount int64  `json:"remainingAmount"`
}
