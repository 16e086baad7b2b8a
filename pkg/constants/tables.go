package constants

// Table names
const (
	TableClaim          = "claims"
	TablePolicy         = "policies"
	TableWorkflow       = "workflow_definitions"
	TableWorkflowStep   = "workflow_steps"
	TableWorkflowTimer  = "workflow_timers"
	TableInitialPayment = "initial_payments"
	TableOutboxEvent    = "outbox_events"
	TableNotification   = "notifications"
	TableAdmin          = "admins"
)

// Common fields
const (
	FieldID               = "id"
	FieldCreatedDate      = "created_date"
	FieldLastModifiedDate = "last_modified_date"
)

// Claim fields
const (
	FieldClaimPolicyID    = "policy_id"
	FieldClaimCustomerID  = "customer_id"
	FieldClaimAmount      = "amount"
	FieldClaimStatus      = "claim_status"
	FieldClaimWorkflowID  = "workflow_id"
	FieldClaimStepOrder   = "current_step_order"
	FieldClaimRiskScore   = "risk_score"
	FieldClaimAdminID     = "admin_id"
	FieldClaimStatusLog   = "status_log"
	FieldClaimDescription = "description"
)

// Policy fields
const (
	FieldPolicyCustomerID      = "customer_id"
	FieldPolicyPremium         = "premium_amount"
	FieldPolicyStatus          = "status"
	FieldPolicyRiskScore       = "risk_score"
	FieldPolicyInitialApprover = "initial_approver_id"
	FieldPolicyFinalApprover   = "final_approver_id"
	FieldPolicyInitialApprDate = "initial_approval_date"
	FieldPolicyFinalApprDate   = "final_approval_date"
	FieldPolicyEndDate         = "end_date"
)

// Workflow step fields
const (
	FieldStepWorkflowID    = "workflow_id"
	FieldStepOrder         = "step_order"
	FieldStepName          = "step_name"
	FieldStepTaskType      = "task_type"
	FieldStepConfiguration = "configuration"
	FieldStepAssignedRole  = "assigned_role"
	FieldStepDueDate       = "due_date"
)

// Timer fields
const (
	FieldTimerClaimID       = "claim_id"
	FieldTimerResumeAt      = "resume_at"
	FieldTimerExpectedOrder = "expected_step_order"
	FieldTimerFired         = "fired"
)
