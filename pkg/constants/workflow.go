package constants

// Workflow step task types
const (
	TaskTypeRule   = "RULE"
	TaskTypeManual = "MANUAL"
	TaskTypeTimer  = "TIMER"
	TaskTypeAPI    = "API"
)

// RULE step rule names. The set is closed at compile time; the executor
// dispatches with a single switch. An unrecognized name found in step
// configuration is logged and treated as a successful no-op.
const (
	RuleAssignByAmount    = "assignByAmount"
	RuleAutoApproveSimple = "autoApproveSimple"
	RuleCheckStatus       = "checkStatus"
	RuleReassignClaim     = "reassignClaim"
)

// API step task names
const (
	APITaskSendNotification = "sendNotification"
)

// Step configuration keys
const (
	ConfigRuleName        = "ruleName"
	ConfigThreshold       = "threshold"
	ConfigAdminID         = "adminId"
	ConfigExpectedStatus  = "expectedStatus"
	ConfigDurationSeconds = "durationSeconds"
	ConfigTask            = "task"
	ConfigMessage         = "message"
	ConfigEntryCondition  = "entryCondition"
)

// Scheduler defaults
const (
	TimerDefaultDurationSeconds = 60
	TimerPollIntervalSeconds    = 5
	SchedulerQueueSize          = 256
	SchedulerWorkers            = 4
	ScheduleDefaultTimezone     = "UTC"
	// Daily at 02:00: policy expiry sweep and overdue-step report.
	ExpirySweepCronSpec = "0 2 * * *"
)
