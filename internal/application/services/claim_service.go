package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/coverline/backend/internal/domain"
	"github.com/coverline/backend/internal/domain/events"
	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/internal/domain/ports"
	"github.com/coverline/backend/pkg/constants"
	apperrors "github.com/coverline/backend/pkg/errors"
	"github.com/coverline/backend/pkg/utils"
)

// FileClaimRequest carries everything needed to open a claim
type FileClaimRequest struct {
	CustomerID          string  `json:"customer_id" binding:"required"`
	PolicyID            string  `json:"policy_id" binding:"required"`
	Description         string  `json:"description"`
	Amount              float64 `json:"amount"`
	WorkflowID          string  `json:"workflow_id"`
	PreviousClaims      int     `json:"previous_claims"`
	DaysSincePurchase   *int    `json:"days_since_purchase,omitempty"`
	HasAllDocuments     bool    `json:"has_all_documents"`
	MatchesFraudPattern bool    `json:"matches_fraud_pattern"`
}

// ClaimService owns the claim lifecycle: filing with risk scoring, manual
// step completion, and the overdue-step report. Workflow advancement
// itself is delegated to the scheduler.
type ClaimService struct {
	tx        ports.TxRunner
	claims    ports.ClaimStore
	workflows ports.WorkflowStore
	outbox    ports.EventOutbox
	scheduler ports.StepScheduler
}

// NewClaimService creates a new ClaimService
func NewClaimService(
	tx ports.TxRunner,
	claims ports.ClaimStore,
	workflows ports.WorkflowStore,
	outbox ports.EventOutbox,
	scheduler ports.StepScheduler,
) *ClaimService {
	return &ClaimService{
		tx:        tx,
		claims:    claims,
		workflows: workflows,
		outbox:    outbox,
		scheduler: scheduler,
	}
}

// FileClaim validates the request, scores it, persists the claim at step 1
// of its workflow, and hands it to the scheduler. The risk assessment is
// computed exactly once, at filing.
func (s *ClaimService) FileClaim(ctx context.Context, req *FileClaimRequest) (*models.Claim, error) {
	if req.Amount <= 0 {
		return nil, apperrors.NewValidationError("amount", "claim amount must be positive")
	}
	if req.CustomerID == "" {
		return nil, apperrors.NewValidationError("customer_id", "customer is required")
	}
	if req.PolicyID == "" {
		return nil, apperrors.NewValidationError("policy_id", "policy is required")
	}

	assessment := domain.ScoreRisk(domain.RiskInput{
		Amount:              req.Amount,
		PreviousClaims:      req.PreviousClaims,
		DaysSincePurchase:   req.DaysSincePurchase,
		HasAllDocuments:     req.HasAllDocuments,
		MatchesFraudPattern: req.MatchesFraudPattern,
	})

	claim := &models.Claim{
		ID:          utils.GenerateID(),
		PolicyID:    req.PolicyID,
		CustomerID:  req.CustomerID,
		Description: req.Description,
		Amount:      req.Amount,
		Status:      constants.ClaimStatusPending,
		RiskScore:   assessment.Score,
		RiskLevel:   assessment.Level,
		RiskFlags:   strings.Join(assessment.Flags, ","),
		StatusLog:   fmt.Sprintf("filed with risk score %d (%s)\n", assessment.Score, assessment.Level),
	}

	if req.WorkflowID != "" {
		workflow, err := s.workflows.GetWorkflow(ctx, req.WorkflowID)
		if err != nil {
			return nil, err
		}
		if workflow == nil {
			return nil, apperrors.NewNotFoundError("workflow", req.WorkflowID)
		}
		firstStep := 1
		claim.WorkflowID = &req.WorkflowID
		claim.CurrentStepOrder = &firstStep
	}

	err := s.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claims.Insert(txCtx, claim); err != nil {
			return err
		}
		return s.outbox.Enqueue(txCtx, events.ClaimStatusChanged, events.StatusChangePayload{
			EntityID:   claim.ID,
			CustomerID: claim.CustomerID,
			OldStatus:  "",
			NewStatus:  claim.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Claim %s filed (amount %.2f, risk %s)", claim.ID, claim.Amount, claim.RiskLevel)

	if claim.CurrentStepOrder != nil {
		s.scheduler.Enqueue(claim.ID)
	}
	return claim, nil
}

// GetClaim returns a claim by ID
func (s *ClaimService) GetClaim(ctx context.Context, claimID string) (*models.Claim, error) {
	return s.claims.Get(ctx, claimID)
}

// AdvanceManualStep completes the MANUAL step a claim is paused on. The
// admin's decision either terminates the claim (APPROVED / DECLINED) or
// leaves it PENDING; either way the step order moves to the next step and
// the scheduler resumes the workflow.
func (s *ClaimService) AdvanceManualStep(ctx context.Context, claimID, resultingStatus string, actor *models.Admin) error {
	switch resultingStatus {
	case constants.ClaimStatusPending, constants.ClaimStatusApproved, constants.ClaimStatusDeclined:
	default:
		return apperrors.NewValidationError("status", fmt.Sprintf("unknown claim status %q", resultingStatus))
	}

	var resume bool

	err := s.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		claim, err := s.claims.GetForUpdate(txCtx, claimID)
		if err != nil {
			return err
		}
		if claim.CurrentStepOrder == nil || claim.WorkflowID == nil {
			return apperrors.NewInvalidStateError("claim", claim.Status, "claim is not paused on a workflow step")
		}

		current := *claim.CurrentStepOrder
		step, err := s.workflows.GetStep(txCtx, *claim.WorkflowID, current)
		if err != nil {
			return err
		}
		if step == nil || step.TaskType != constants.TaskTypeManual {
			return apperrors.NewInvalidStateError("claim", claim.Status, "current step is not a manual step")
		}

		if resultingStatus != claim.Status {
			if err := s.claims.SetStatus(txCtx, claimID, resultingStatus); err != nil {
				return err
			}
			if err := s.outbox.Enqueue(txCtx, events.ClaimStatusChanged, events.StatusChangePayload{
				EntityID:   claimID,
				CustomerID: claim.CustomerID,
				OldStatus:  claim.Status,
				NewStatus:  resultingStatus,
			}); err != nil {
				return err
			}
		}

		line := fmt.Sprintf("manual step %q completed by %s: %s", step.StepName, actor.Name, resultingStatus)
		if err := s.claims.AppendStatusLog(txCtx, claimID, line); err != nil {
			return err
		}

		next, err := s.workflows.NextStepOrder(txCtx, *claim.WorkflowID, current)
		if err != nil {
			return err
		}
		applied, err := s.claims.AdvanceStep(txCtx, claimID, current, next)
		if err != nil {
			return err
		}
		if !applied {
			return apperrors.NewInvalidStateError("claim", claim.Status, "claim step advanced concurrently")
		}

		resume = next != nil
		return nil
	})
	if err != nil {
		return err
	}

	if resume {
		s.scheduler.Enqueue(claimID)
	}
	return nil
}

// OverdueReport lists claims parked on a step past its due date. SLA
// reporting only; nothing is mutated.
func (s *ClaimService) OverdueReport(ctx context.Context) ([]*models.OverdueStep, error) {
	return s.workflows.ListOverdueSteps(ctx, time.Now())
}
