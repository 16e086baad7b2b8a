package ports

import (
	"context"
	"time"

	"github.com/coverline/backend/internal/domain/events"
	"github.com/coverline/backend/internal/domain/models"
)

// TxRunner executes a function inside a database transaction. The
// transaction travels in the returned context; store methods called with
// that context participate in it. Nested calls reuse the existing
// transaction.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
}

// ClaimStore provides persistence for claims. Mutating methods expect a
// transactional context when called from the workflow engine.
type ClaimStore interface {
	Insert(ctx context.Context, claim *models.Claim) error
	Get(ctx context.Context, claimID string) (*models.Claim, error)

	// GetForUpdate loads the claim row under an exclusive row lock.
	// Requires a transactional context.
	GetForUpdate(ctx context.Context, claimID string) (*models.Claim, error)

	// AdvanceStep conditionally moves current_step_order from fromOrder to
	// to (nil clears it). Returns true when exactly one row was updated;
	// false means the claim already moved on and the caller must no-op.
	AdvanceStep(ctx context.Context, claimID string, fromOrder int, to *int) (bool, error)

	SetStatus(ctx context.Context, claimID, status string) error
	AssignAdmin(ctx context.Context, claimID, adminID string) error
	AppendStatusLog(ctx context.Context, claimID, line string) error
}

// WorkflowStore provides read access to workflow definitions and steps
type WorkflowStore interface {
	GetWorkflow(ctx context.Context, workflowID string) (*models.WorkflowDefinition, error)

	// GetStep returns the step at (workflowID, stepOrder), or nil when no
	// such step exists (deleted steps leave gaps; the engine treats a gap
	// as workflow completion).
	GetStep(ctx context.Context, workflowID string, stepOrder int) (*models.WorkflowStep, error)

	// NextStepOrder returns the minimum step_order strictly greater than
	// after, or nil when the workflow has no further steps.
	NextStepOrder(ctx context.Context, workflowID string, after int) (*int, error)

	ListSteps(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error)

	// ListOverdueSteps reports claims sitting on a step past its due date.
	// Reporting only; the engine never enforces due dates.
	ListOverdueSteps(ctx context.Context, now time.Time) ([]*models.OverdueStep, error)
}

// TimerStore persists durable TIMER continuations
type TimerStore interface {
	Schedule(ctx context.Context, timer *models.WorkflowTimer) error

	// ListDue returns due, unfired timers without locking them. Each timer
	// is then claimed and fired in its own transaction.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.WorkflowTimer, error)

	// ClaimPending locks the timer row (FOR UPDATE SKIP LOCKED) and
	// returns true only while it is still unfired. Requires a
	// transactional context.
	ClaimPending(ctx context.Context, timerID string) (bool, error)

	MarkFired(ctx context.Context, timerID string) error
}

// PolicyStore provides persistence for policies and their payments
type PolicyStore interface {
	Insert(ctx context.Context, policy *models.Policy) error
	Get(ctx context.Context, policyID string) (*models.Policy, error)

	// GetForUpdate loads the policy row under an exclusive row lock.
	// Requires a transactional context.
	GetForUpdate(ctx context.Context, policyID string) (*models.Policy, error)

	// UpdateStatusCAS sets status to to only when it still equals from.
	// Returns false when another transition won the race.
	UpdateStatusCAS(ctx context.Context, policyID, from, to string) (bool, error)

	SetInitialApproval(ctx context.Context, policyID, approverID string, at time.Time) error
	SetFinalApproval(ctx context.Context, policyID, approverID string, at time.Time) error
	InsertPayment(ctx context.Context, payment *models.InitialPayment) error

	// ListExpirable returns ACTIVE policies whose end date passed before cutoff
	ListExpirable(ctx context.Context, cutoff time.Time) ([]*models.Policy, error)
}

// NotificationStore persists delivered customer notifications
type NotificationStore interface {
	// Insert persists a notification. Inserting an ID that already exists
	// is a no-op, so redelivered events never duplicate a notification.
	Insert(ctx context.Context, n *models.Notification) error

	ListByCustomer(ctx context.Context, customerID string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// EventOutbox appends an event to the transactional outbox. When the
// context carries a transaction the append commits or rolls back with it.
type EventOutbox interface {
	Enqueue(ctx context.Context, eventType events.EventType, payload interface{}) error
}

// StepScheduler accepts claims whose workflow should be advanced. Enqueue
// must be non-blocking from the caller's perspective and must never be
// invoked inside an open transaction.
type StepScheduler interface {
	Enqueue(claimID string)
}
