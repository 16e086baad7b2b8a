package models

import (
	"time"
)

// Claim represents a filed insurance claim moving through a workflow.
// CurrentStepOrder is nil once the workflow has finished or halted.
type Claim struct {
	ID               string    `json:"id"`
	PolicyID         string    `json:"policy_id"`
	CustomerID       string    `json:"customer_id"`
	Description      string    `json:"description"`
	Amount           float64   `json:"amount"`
	Status           string    `json:"claim_status"` // PENDING, APPROVED, DECLINED
	WorkflowID       *string   `json:"workflow_id,omitempty"`
	CurrentStepOrder *int      `json:"current_step_order,omitempty"`
	RiskScore        int       `json:"risk_score"`
	RiskLevel        string    `json:"risk_level"`
	RiskFlags        string    `json:"risk_flags"` // comma-joined flag list set at filing
	AdminID          *string   `json:"admin_id,omitempty"`
	StatusLog        string    `json:"status_log"`
	CreatedDate      time.Time `json:"created_date"`
	LastModifiedDate time.Time `json:"last_modified_date"`
}

// InitialPayment records the first premium payment for a policy
type InitialPayment struct {
	ID          string    `json:"id"`
	PolicyID    string    `json:"policy_id"`
	Amount      float64   `json:"amount"`
	PaidDate    time.Time `json:"paid_date"`
	CreatedDate time.Time `json:"created_date"`
}

// Notification is a persisted customer notification produced by the outbox consumer
type Notification struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	Message     string    `json:"message"`
	Type        string    `json:"type"` // claim, policy
	IsRead      bool      `json:"is_read"`
	CreatedDate time.Time `json:"created_date"`
}
