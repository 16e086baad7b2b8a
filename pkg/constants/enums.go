package constants

// Claim status constants
const (
	ClaimStatusPending  = "PENDING"
	ClaimStatusApproved = "APPROVED"
	ClaimStatusDeclined = "DECLINED"
)

// Policy status constants
const (
	PolicyStatusAwaitingPayment  = "INACTIVE_AWAITING_PAYMENT"
	PolicyStatusUnderwriterRev   = "UNDERWRITER_REVIEW"
	PolicyStatusPendingInitial   = "PENDING_INITIAL_APPROVAL"
	PolicyStatusPendingFinal     = "PENDING_FINAL_APPROVAL"
	PolicyStatusActive           = "ACTIVE"
	PolicyStatusDeclined         = "DECLINED"
	PolicyStatusDeniedUnderwrite = "DENIED_UNDERWRITER"
	PolicyStatusExpired          = "EXPIRED"
)

// Actor roles. Only the security officer role carries final-approval rights;
// everything else is an opaque string the core never interprets.
const (
	RoleSecurityOfficer = "Security Officer"
	RoleClaimsAdmin     = "Claims Admin"
)

// Notification types
const (
	NotificationTypeClaim  = "claim"
	NotificationTypePolicy = "policy"
)
