package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/coverline/backend/internal/domain"
	"github.com/coverline/backend/internal/domain/events"
	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/internal/domain/ports"
	"github.com/coverline/backend/pkg/constants"
	apperrors "github.com/coverline/backend/pkg/errors"
	"github.com/coverline/backend/pkg/utils"
)

// PurchasePolicyRequest creates a policy awaiting its first payment
type PurchasePolicyRequest struct {
	CustomerID    string  `json:"customer_id" binding:"required"`
	PremiumAmount float64 `json:"premium_amount"`
	RiskScore     int     `json:"risk_score"`
	TermMonths    int     `json:"term_months"`
}

// PolicyService owns the policy lifecycle: purchase, payment intake with
// immediate underwriter evaluation, the two-stage four-eyes approval, and
// the expiry sweep. Every transition is a compare-and-set on status inside
// a transaction holding the policy row lock.
type PolicyService struct {
	tx           ports.TxRunner
	policies     ports.PolicyStore
	outbox       ports.EventOutbox
	underwriter  *domain.Underwriter
	stateMachine *domain.PolicyStateMachine
}

// NewPolicyService creates a new PolicyService
func NewPolicyService(tx ports.TxRunner, policies ports.PolicyStore, outbox ports.EventOutbox, underwriter *domain.Underwriter) *PolicyService {
	return &PolicyService{
		tx:           tx,
		policies:     policies,
		outbox:       outbox,
		underwriter:  underwriter,
		stateMachine: domain.NewPolicyStateMachine(),
	}
}

// PurchasePolicy creates a policy in INACTIVE_AWAITING_PAYMENT
func (s *PolicyService) PurchasePolicy(ctx context.Context, req *PurchasePolicyRequest) (*models.Policy, error) {
	if req.PremiumAmount <= 0 {
		return nil, apperrors.NewValidationError("premium_amount", "premium must be positive")
	}
	if req.CustomerID == "" {
		return nil, apperrors.NewValidationError("customer_id", "customer is required")
	}

	term := req.TermMonths
	if term <= 0 {
		term = 12
	}
	endDate := time.Now().AddDate(0, term, 0)

	policy := &models.Policy{
		ID:            utils.GenerateID(),
		CustomerID:    req.CustomerID,
		PremiumAmount: req.PremiumAmount,
		Status:        constants.PolicyStatusAwaitingPayment,
		RiskScore:     req.RiskScore,
		EndDate:       &endDate,
	}

	err := s.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := s.policies.Insert(txCtx, policy); err != nil {
			return err
		}
		return s.outbox.Enqueue(txCtx, events.PolicyStatusChanged, events.StatusChangePayload{
			EntityID:   policy.ID,
			CustomerID: policy.CustomerID,
			NewStatus:  policy.Status,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Policy %s purchased (premium %.2f)", policy.ID, policy.PremiumAmount)
	return policy, nil
}

// GetPolicy returns a policy by ID
func (s *PolicyService) GetPolicy(ctx context.Context, policyID string) (*models.Policy, error) {
	return s.policies.Get(ctx, policyID)
}

// OnPaymentReceived records the initial premium payment and immediately
// runs the underwriter. The payment row, the move to review, the
// underwriter's resulting transition, and the notification all commit in
// one transaction.
func (s *PolicyService) OnPaymentReceived(ctx context.Context, policyID string, amount float64) error {
	return s.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		policy, err := s.policies.GetForUpdate(txCtx, policyID)
		if err != nil {
			return err
		}

		if !s.stateMachine.CanTransition(domain.PolicyState(policy.Status), domain.TransitionPaymentReceived) {
			return apperrors.NewInvalidStateError("policy", policy.Status, "initial payment not required")
		}

		payment := &models.InitialPayment{
			ID:       utils.GenerateID(),
			PolicyID: policyID,
			Amount:   amount,
			PaidDate: time.Now(),
		}
		if err := s.policies.InsertPayment(txCtx, payment); err != nil {
			return err
		}

		if err := s.applyTransition(txCtx, policy, domain.TransitionPaymentReceived); err != nil {
			return err
		}

		decision := s.underwriter.Evaluate(domain.UnderwriterInput{
			PremiumAmount: policy.PremiumAmount,
			RiskScore:     policy.RiskScore,
		})

		var verdict domain.PolicyTransition
		var message string
		switch decision {
		case domain.DecisionApprove:
			verdict = domain.TransitionUnderwriterApprove
			message = "Your policy passed underwriting and is awaiting approval."
		default:
			verdict = domain.TransitionUnderwriterDeny
			message = "Your policy application was denied at underwriting."
		}

		if err := s.applyTransition(txCtx, policy, verdict); err != nil {
			return err
		}

		log.Printf("🏦 Policy %s underwriter decision: %s", policyID, decision)
		return s.outbox.Enqueue(txCtx, events.NotificationRequested, events.NotificationPayload{
			CustomerID: policy.CustomerID,
			Message:    message,
			Type:       constants.NotificationTypePolicy,
		})
	})
}

// ApproveInitial records the first of the two required approvals
func (s *PolicyService) ApproveInitial(ctx context.Context, policyID string, actor *models.Admin) error {
	return s.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		policy, err := s.policies.GetForUpdate(txCtx, policyID)
		if err != nil {
			return err
		}

		if !s.stateMachine.CanTransition(domain.PolicyState(policy.Status), domain.TransitionInitialApprove) {
			return apperrors.NewInvalidStateError("policy", policy.Status, "policy is not awaiting initial approval")
		}

		if err := s.policies.SetInitialApproval(txCtx, policyID, actor.ID, time.Now()); err != nil {
			return err
		}
		return s.applyTransition(txCtx, policy, domain.TransitionInitialApprove)
	})
}

// ApproveFinal records the second approval and activates the policy.
// Enforced here, not in the state machine: the final approver must differ
// from the initial approver (four-eyes) and must hold the security officer
// role.
func (s *PolicyService) ApproveFinal(ctx context.Context, policyID string, actor *models.Admin) error {
	return s.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		policy, err := s.policies.GetForUpdate(txCtx, policyID)
		if err != nil {
			return err
		}

		if !s.stateMachine.CanTransition(domain.PolicyState(policy.Status), domain.TransitionFinalApprove) {
			return apperrors.NewInvalidStateError("policy", policy.Status, "policy is not awaiting final approval")
		}
		if policy.InitialApproverID != nil && *policy.InitialApproverID == actor.ID {
			return apperrors.NewForbiddenError("four-eyes", "final approver must differ from initial approver")
		}
		if actor.Role != constants.RoleSecurityOfficer {
			return apperrors.NewForbiddenError("role", "final approval requires the Security Officer role")
		}

		if err := s.policies.SetFinalApproval(txCtx, policyID, actor.ID, time.Now()); err != nil {
			return err
		}
		if err := s.applyTransition(txCtx, policy, domain.TransitionFinalApprove); err != nil {
			return err
		}

		return s.outbox.Enqueue(txCtx, events.NotificationRequested, events.NotificationPayload{
			CustomerID: policy.CustomerID,
			Message:    fmt.Sprintf("Your policy %s is now active.", policyID),
			Type:       constants.NotificationTypePolicy,
		})
	})
}

// Decline rejects a policy at either approval stage
func (s *PolicyService) Decline(ctx context.Context, policyID string, actor *models.Admin) error {
	return s.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
		policy, err := s.policies.GetForUpdate(txCtx, policyID)
		if err != nil {
			return err
		}

		if !s.stateMachine.CanTransition(domain.PolicyState(policy.Status), domain.TransitionDecline) {
			return apperrors.NewInvalidStateError("policy", policy.Status, "policy cannot be declined in its current state")
		}

		if err := s.applyTransition(txCtx, policy, domain.TransitionDecline); err != nil {
			return err
		}
		return s.outbox.Enqueue(txCtx, events.NotificationRequested, events.NotificationPayload{
			CustomerID: policy.CustomerID,
			Message:    "Your policy application was declined.",
			Type:       constants.NotificationTypePolicy,
		})
	})
}

// ExpireSweep moves active policies past their end date to EXPIRED. Run by
// the scheduler's nightly cron; each policy expires in its own transaction
// so one failure never blocks the rest of the sweep.
func (s *PolicyService) ExpireSweep(ctx context.Context) {
	policies, err := s.policies.ListExpirable(ctx, time.Now())
	if err != nil {
		log.Printf("⚠️ Expiry sweep: failed to list policies: %v", err)
		return
	}

	expired := 0
	for _, policy := range policies {
		err := s.tx.RunInTransaction(ctx, func(txCtx context.Context) error {
			locked, err := s.policies.GetForUpdate(txCtx, policy.ID)
			if err != nil {
				return err
			}
			if !s.stateMachine.CanTransition(domain.PolicyState(locked.Status), domain.TransitionExpire) {
				return nil
			}
			return s.applyTransition(txCtx, locked, domain.TransitionExpire)
		})
		if err != nil {
			log.Printf("⚠️ Expiry sweep: policy %s: %v", policy.ID, err)
			continue
		}
		expired++
	}

	if expired > 0 {
		log.Printf("⏰ Expiry sweep: %d policies expired", expired)
	}
}

// applyTransition resolves the next state and applies it with a
// compare-and-set, updating the in-memory policy on success. Zero rows
// affected means a concurrent transition won despite the row lock, which
// is treated as an invalid-state conflict.
func (s *PolicyService) applyTransition(ctx context.Context, policy *models.Policy, action domain.PolicyTransition) error {
	next, err := s.stateMachine.Transition(domain.PolicyState(policy.Status), action)
	if err != nil {
		return apperrors.NewInvalidStateError("policy", policy.Status, err.Error())
	}

	ok, err := s.policies.UpdateStatusCAS(ctx, policy.ID, policy.Status, string(next))
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewInvalidStateError("policy", policy.Status, "policy status changed concurrently")
	}

	if err := s.outbox.Enqueue(ctx, events.PolicyStatusChanged, events.StatusChangePayload{
		EntityID:   policy.ID,
		CustomerID: policy.CustomerID,
		OldStatus:  policy.Status,
		NewStatus:  string(next),
	}); err != nil {
		return err
	}

	policy.Status = string(next)
	return nil
}
