package models

import (
	"time"
)

// WorkflowDefinition represents a named claim workflow
type WorkflowDefinition struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// WorkflowStep represents one step within a workflow. StepOrder values are
// unique per workflow but not required to be contiguous; the next step is
// the minimum order strictly greater than the current one.
type WorkflowStep struct {
	ID            string                 `json:"id"`
	WorkflowID    string                 `json:"workflow_id"`
	StepOrder     int                    `json:"step_order"`
	StepName      string                 `json:"step_name"`
	TaskType      string                 `json:"task_type"` // RULE, MANUAL, TIMER, API
	Configuration map[string]interface{} `json:"configuration,omitempty"`
	AssignedRole  *string                `json:"assigned_role,omitempty"`
	DueDate       *time.Time             `json:"due_date,omitempty"` // SLA reporting only, never enforced
}

// ConfigString returns a string value from the step configuration
func (s *WorkflowStep) ConfigString(key string) string {
	if s.Configuration == nil {
		return ""
	}
	if v, ok := s.Configuration[key].(string); ok {
		return v
	}
	return ""
}

// ConfigFloat returns a numeric value from the step configuration.
// JSON-decoded numbers arrive as float64; ints are accepted for seeded data.
func (s *WorkflowStep) ConfigFloat(key string) (float64, bool) {
	if s.Configuration == nil {
		return 0, false
	}
	switch v := s.Configuration[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// WorkflowTimer is a durable continuation for a TIMER step. It survives
// process restart; the scheduler polls for due rows and applies a
// conditional advance against ExpectedStepOrder.
type WorkflowTimer struct {
	ID                string    `json:"id"`
	ClaimID           string    `json:"claim_id"`
	ResumeAt          time.Time `json:"resume_at"`
	ExpectedStepOrder int       `json:"expected_step_order"`
	NextStepOrder     *int      `json:"next_step_order,omitempty"`
	Fired             bool      `json:"fired"`
	CreatedDate       time.Time `json:"created_date"`
}

// OverdueStep is a read-only SLA report row: a claim sitting on a step
// whose due date has passed.
type OverdueStep struct {
	ClaimID   string    `json:"claim_id"`
	StepName  string    `json:"step_name"`
	StepOrder int       `json:"step_order"`
	TaskType  string    `json:"task_type"`
	DueDate   time.Time `json:"due_date"`
}
