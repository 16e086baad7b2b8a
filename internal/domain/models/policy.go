package models

import (
	"time"
)

// Policy represents an insurance policy in the approval pipeline.
// Once both approver fields are set they must differ (four-eyes), and
// ACTIVE implies both are set.
type Policy struct {
	ID                  string     `json:"id"`
	CustomerID          string     `json:"customer_id"`
	PremiumAmount       float64    `json:"premium_amount"`
	Status              string     `json:"status"`
	RiskScore           int        `json:"risk_score"`
	InitialApproverID   *string    `json:"initial_approver_id,omitempty"`
	FinalApproverID     *string    `json:"final_approver_id,omitempty"`
	InitialApprovalDate *time.Time `json:"initial_approval_date,omitempty"`
	FinalApprovalDate   *time.Time `json:"final_approval_date,omitempty"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	CreatedDate         time.Time  `json:"created_date"`
	LastModifiedDate    time.Time  `json:"last_modified_date"`
}

// Admin represents a back-office actor who works claims and approvals
type Admin struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedDate  time.Time `json:"created_date"`
}
