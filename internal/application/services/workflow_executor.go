package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/coverline/backend/internal/domain/events"
	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/internal/domain/ports"
	"github.com/coverline/backend/pkg/constants"
	apperrors "github.com/coverline/backend/pkg/errors"
	"github.com/coverline/backend/pkg/expression"
	"github.com/coverline/backend/pkg/utils"
)

// OutcomeKind classifies the result of executing one workflow step
type OutcomeKind int

const (
	// OutcomeAdvanced means the step completed and current_step_order moved
	// to NextStep (nil when the workflow finished or a checkStatus rule
	// halted the branch).
	OutcomeAdvanced OutcomeKind = iota
	// OutcomePaused means the engine yielded without mutating the step
	// order: a MANUAL step waiting for an admin, or a TIMER step whose
	// continuation is now persisted.
	OutcomePaused
	// OutcomeHalted means the invocation was a no-op: the workflow already
	// completed or another worker advanced the claim first.
	OutcomeHalted
	// OutcomeErrored means the transaction rolled back; the workflow
	// instance stops advancing.
	OutcomeErrored
)

// StepOutcome is the result of one ExecuteStep invocation
type StepOutcome struct {
	Kind     OutcomeKind
	NextStep *int
	Reason   string
	Err      error
}

func advanced(next *int) StepOutcome { return StepOutcome{Kind: OutcomeAdvanced, NextStep: next} }
func paused() StepOutcome            { return StepOutcome{Kind: OutcomePaused} }
func errored(err error) StepOutcome  { return StepOutcome{Kind: OutcomeErrored, Err: err} }

func halted(reason string) StepOutcome {
	return StepOutcome{Kind: OutcomeHalted, Reason: reason}
}

// WorkflowExecutor executes exactly one claim workflow step per call,
// inside its own transaction with the claim row locked. It never invokes
// itself: re-entrant continuation is the scheduler's job, driven by the
// returned outcome.
type WorkflowExecutor struct {
	tx        ports.TxRunner
	claims    ports.ClaimStore
	workflows ports.WorkflowStore
	timers    ports.TimerStore
	outbox    ports.EventOutbox
	expr      *expression.Engine
}

// NewWorkflowExecutor creates a new WorkflowExecutor
func NewWorkflowExecutor(
	tx ports.TxRunner,
	claims ports.ClaimStore,
	workflows ports.WorkflowStore,
	timers ports.TimerStore,
	outbox ports.EventOutbox,
) *WorkflowExecutor {
	return &WorkflowExecutor{
		tx:        tx,
		claims:    claims,
		workflows: workflows,
		timers:    timers,
		outbox:    outbox,
		expr:      expression.NewEngine(),
	}
}

// ExecuteStep runs the claim's current step. All reads and mutations
// happen in one transaction; on error the transaction rolls back and a
// best-effort marker is appended to the claim's status log outside it.
func (we *WorkflowExecutor) ExecuteStep(ctx context.Context, claimID string) StepOutcome {
	var outcome StepOutcome

	err := we.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		var txErr error
		outcome, txErr = we.executeStepTx(txCtx, claimID)
		return txErr
	})
	if err != nil {
		log.Printf("❌ Workflow: claim %s step execution failed: %v", claimID, err)
		we.recordFailure(ctx, claimID, err)
		return errored(err)
	}

	return outcome
}

// executeStepTx holds the claim row lock for the duration of the step
func (we *WorkflowExecutor) executeStepTx(ctx context.Context, claimID string) (StepOutcome, error) {
	claim, err := we.claims.GetForUpdate(ctx, claimID)
	if err != nil {
		return StepOutcome{}, err
	}

	if claim.CurrentStepOrder == nil {
		return halted("already complete"), nil
	}
	if claim.WorkflowID == nil {
		return halted("no workflow attached"), nil
	}

	workflowID := *claim.WorkflowID
	current := *claim.CurrentStepOrder

	step, err := we.workflows.GetStep(ctx, workflowID, current)
	if err != nil {
		return StepOutcome{}, err
	}
	if step == nil {
		// Deleted step left a gap: the workflow is complete
		if _, err := we.claims.AdvanceStep(ctx, claimID, current, nil); err != nil {
			return StepOutcome{}, err
		}
		return advanced(nil), nil
	}

	next, err := we.workflows.NextStepOrder(ctx, workflowID, current)
	if err != nil {
		return StepOutcome{}, err
	}

	if ok, err := we.entryConditionMet(claim, step); err != nil {
		return StepOutcome{}, err
	} else if !ok {
		// Condition false: skip the step's work but keep advancing
		log.Printf("⏭️ Workflow: claim %s skipping step %d (%s), entry condition not met",
			claimID, current, step.StepName)
		return we.advanceTo(ctx, claim, current, next)
	}

	switch step.TaskType {
	case constants.TaskTypeRule:
		return we.executeRuleStep(ctx, claim, step, current, next)

	case constants.TaskTypeManual:
		// No mutation; an admin advances the claim via AdvanceManualStep
		return paused(), nil

	case constants.TaskTypeTimer:
		return we.executeTimerStep(ctx, claim, step, current, next)

	case constants.TaskTypeAPI:
		if err := we.executeAPITask(ctx, claim, step); err != nil {
			return StepOutcome{}, err
		}
		return we.advanceTo(ctx, claim, current, next)

	default:
		return StepOutcome{}, apperrors.NewEngineError(
			fmt.Sprintf("unknown task type %q at step %d of workflow %s", step.TaskType, current, workflowID), nil)
	}
}

// executeRuleStep dispatches the configured rule, then advances. A
// checkStatus mismatch forces the next step to nil, halting the branch.
func (we *WorkflowExecutor) executeRuleStep(ctx context.Context, claim *models.Claim, step *models.WorkflowStep, current int, next *int) (StepOutcome, error) {
	ruleName := step.ConfigString(constants.ConfigRuleName)

	switch ruleName {
	case constants.RuleAssignByAmount:
		if err := we.ruleAssignByAmount(ctx, claim, step); err != nil {
			return StepOutcome{}, err
		}

	case constants.RuleAutoApproveSimple:
		if err := we.claims.SetStatus(ctx, claim.ID, constants.ClaimStatusApproved); err != nil {
			return StepOutcome{}, err
		}
		if err := we.claims.AppendStatusLog(ctx, claim.ID, "auto-approved by rule autoApproveSimple"); err != nil {
			return StepOutcome{}, err
		}

	case constants.RuleCheckStatus:
		expected := step.ConfigString(constants.ConfigExpectedStatus)
		if claim.Status != expected {
			log.Printf("🛑 Workflow: claim %s status %q does not match expected %q, halting branch",
				claim.ID, claim.Status, expected)
			if err := we.claims.AppendStatusLog(ctx, claim.ID,
				fmt.Sprintf("halted: status %s did not match expected %s", claim.Status, expected)); err != nil {
				return StepOutcome{}, err
			}
			next = nil
		}

	case constants.RuleReassignClaim:
		adminID := step.ConfigString(constants.ConfigAdminID)
		if adminID == "" {
			return StepOutcome{}, apperrors.NewEngineError(
				fmt.Sprintf("rule reassignClaim at step %d has no adminId configured", current), nil)
		}
		if err := we.claims.AssignAdmin(ctx, claim.ID, adminID); err != nil {
			return StepOutcome{}, err
		}
		if err := we.claims.AppendStatusLog(ctx, claim.ID, "reassigned to admin "+adminID); err != nil {
			return StepOutcome{}, err
		}

	default:
		// An unrecognized rule name is logged and the step still counts
		// as completed.
		log.Printf("⚠️ Workflow: claim %s step %d has unknown rule %q, treating as no-op",
			claim.ID, current, ruleName)
	}

	return we.advanceTo(ctx, claim, current, next)
}

// ruleAssignByAmount assigns the configured admin when the claim amount is
// below the threshold; above it the claim stays unassigned for manual triage.
func (we *WorkflowExecutor) ruleAssignByAmount(ctx context.Context, claim *models.Claim, step *models.WorkflowStep) error {
	threshold, ok := step.ConfigFloat(constants.ConfigThreshold)
	if !ok {
		return apperrors.NewEngineError("rule assignByAmount has no threshold configured", nil)
	}

	if claim.Amount >= threshold {
		return nil
	}

	adminID := step.ConfigString(constants.ConfigAdminID)
	if adminID == "" {
		return apperrors.NewEngineError("rule assignByAmount has no adminId configured", nil)
	}

	if err := we.claims.AssignAdmin(ctx, claim.ID, adminID); err != nil {
		return err
	}
	return we.claims.AppendStatusLog(ctx, claim.ID,
		fmt.Sprintf("assigned to admin %s (amount %.2f below threshold %.2f)", adminID, claim.Amount, threshold))
}

// executeTimerStep persists a durable continuation and yields. The claim
// stays on the TIMER step; the scheduler's poller fires the row later and
// applies a conditional advance, so a stale timer is a silent no-op.
func (we *WorkflowExecutor) executeTimerStep(ctx context.Context, claim *models.Claim, step *models.WorkflowStep, current int, next *int) (StepOutcome, error) {
	seconds, ok := step.ConfigFloat(constants.ConfigDurationSeconds)
	if !ok || seconds <= 0 {
		seconds = constants.TimerDefaultDurationSeconds
	}

	timer := &models.WorkflowTimer{
		ID:                utils.GenerateID(),
		ClaimID:           claim.ID,
		ResumeAt:          time.Now().Add(time.Duration(seconds) * time.Second),
		ExpectedStepOrder: current,
		NextStepOrder:     next,
	}
	if err := we.timers.Schedule(ctx, timer); err != nil {
		return StepOutcome{}, err
	}

	log.Printf("⏰ Workflow: claim %s paused at step %d, resuming in %.0fs", claim.ID, current, seconds)
	return paused(), nil
}

// executeAPITask runs the named side-effecting task. sendNotification goes
// through the outbox so the message commits with the step transition.
func (we *WorkflowExecutor) executeAPITask(ctx context.Context, claim *models.Claim, step *models.WorkflowStep) error {
	task := step.ConfigString(constants.ConfigTask)

	switch task {
	case constants.APITaskSendNotification:
		message := step.ConfigString(constants.ConfigMessage)
		if message == "" {
			message = fmt.Sprintf("Update on your claim %s: status %s", claim.ID, claim.Status)
		}
		return we.outbox.Enqueue(ctx, events.NotificationRequested, events.NotificationPayload{
			CustomerID: claim.CustomerID,
			Message:    message,
			Type:       constants.NotificationTypeClaim,
		})

	default:
		log.Printf("⚠️ Workflow: claim %s step %q has unknown API task %q, proceeding",
			claim.ID, step.StepName, task)
		return nil
	}
}

// advanceTo applies the conditional step advance. Zero rows affected means
// another invocation already moved the claim; the row lock makes that rare
// but the guard keeps advancement exactly-once either way.
func (we *WorkflowExecutor) advanceTo(ctx context.Context, claim *models.Claim, current int, next *int) (StepOutcome, error) {
	applied, err := we.claims.AdvanceStep(ctx, claim.ID, current, next)
	if err != nil {
		return StepOutcome{}, err
	}
	if !applied {
		return halted("step already advanced"), nil
	}
	return advanced(next), nil
}

// entryConditionMet evaluates the step's optional entry condition against
// the claim. An absent condition always passes.
func (we *WorkflowExecutor) entryConditionMet(claim *models.Claim, step *models.WorkflowStep) (bool, error) {
	condition := step.ConfigString(constants.ConfigEntryCondition)
	if condition == "" {
		return true, nil
	}

	env := map[string]interface{}{
		"amount":       claim.Amount,
		"claim_status": claim.Status,
		"risk_score":   claim.RiskScore,
		"risk_level":   claim.RiskLevel,
	}
	met, err := we.expr.EvaluateBool(condition, env)
	if err != nil {
		return false, apperrors.NewEngineError(
			fmt.Sprintf("entry condition %q failed to evaluate", condition), err)
	}
	return met, nil
}

// recordFailure appends an error marker outside the rolled-back
// transaction. Best effort: a second failure is only logged.
func (we *WorkflowExecutor) recordFailure(ctx context.Context, claimID string, cause error) {
	line := fmt.Sprintf("workflow error: %v", cause)
	if err := we.claims.AppendStatusLog(ctx, claimID, line); err != nil {
		log.Printf("⚠️ Workflow: failed to record error for claim %s: %v", claimID, err)
	}
}
