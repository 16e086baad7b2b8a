package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/pkg/constants"
	apperrors "github.com/coverline/backend/pkg/errors"
)

const policyColumns = "id, customer_id, premium_amount, status, risk_score, " +
	"initial_approver_id, final_approver_id, initial_approval_date, final_approval_date, " +
	"end_date, created_date, last_modified_date"

// PolicyRepository handles database operations for policies and initial
// payments. Status transitions use compare-and-set so two concurrent
// approvals can never race the same transition.
type PolicyRepository struct {
	db *sql.DB
	tm *TransactionManager
}

// NewPolicyRepository creates a new PolicyRepository
func NewPolicyRepository(db *sql.DB, tm *TransactionManager) *PolicyRepository {
	return &PolicyRepository{db: db, tm: tm}
}

// Insert creates a new policy row
func (r *PolicyRepository) Insert(ctx context.Context, policy *models.Policy) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, customer_id, premium_amount, status, risk_score, end_date,
			created_date, last_modified_date)
		VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, constants.TablePolicy)

	exec := r.tm.ExecutorFor(ctx)
	_, err := exec.ExecContext(ctx, query,
		policy.ID, policy.CustomerID, policy.PremiumAmount, policy.Status,
		policy.RiskScore, policy.EndDate)
	if err != nil {
		return fmt.Errorf("failed to insert policy: %w", err)
	}
	return nil
}

// Get retrieves a policy by ID without locking
func (r *PolicyRepository) Get(ctx context.Context, policyID string) (*models.Policy, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", policyColumns, constants.TablePolicy)
	return r.scanOne(ctx, query, policyID)
}

// GetForUpdate retrieves a policy by ID under an exclusive row lock.
// Requires a transactional context.
func (r *PolicyRepository) GetForUpdate(ctx context.Context, policyID string) (*models.Policy, error) {
	if r.tm.ExtractTx(ctx) == nil {
		return nil, fmt.Errorf("transaction required for locking policy %s", policyID)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? FOR UPDATE", policyColumns, constants.TablePolicy)
	return r.scanOne(ctx, query, policyID)
}

// UpdateStatusCAS sets status to `to` only when it still equals `from`.
// Returns false when zero rows changed (another transition won).
func (r *PolicyRepository) UpdateStatusCAS(ctx context.Context, policyID, from, to string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET status = ?, last_modified_date = NOW()
		WHERE id = ? AND status = ?
	`, constants.TablePolicy)

	exec := r.tm.ExecutorFor(ctx)
	result, err := exec.ExecContext(ctx, query, to, policyID, from)
	if err != nil {
		return false, fmt.Errorf("failed to update policy status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// SetInitialApproval persists the first approver's identity and timestamp
func (r *PolicyRepository) SetInitialApproval(ctx context.Context, policyID, approverID string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET initial_approver_id = ?, initial_approval_date = ?, last_modified_date = NOW()
		WHERE id = ?
	`, constants.TablePolicy)

	exec := r.tm.ExecutorFor(ctx)
	_, err := exec.ExecContext(ctx, query, approverID, at, policyID)
	return err
}

// SetFinalApproval persists the second approver's identity and timestamp
func (r *PolicyRepository) SetFinalApproval(ctx context.Context, policyID, approverID string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET final_approver_id = ?, final_approval_date = ?, last_modified_date = NOW()
		WHERE id = ?
	`, constants.TablePolicy)

	exec := r.tm.ExecutorFor(ctx)
	_, err := exec.ExecContext(ctx, query, approverID, at, policyID)
	return err
}

// InsertPayment records the initial premium payment
func (r *PolicyRepository) InsertPayment(ctx context.Context, payment *models.InitialPayment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, policy_id, amount, paid_date, created_date)
		VALUES (?, ?, ?, ?, NOW())
	`, constants.TableInitialPayment)

	exec := r.tm.ExecutorFor(ctx)
	_, err := exec.ExecContext(ctx, query, payment.ID, payment.PolicyID, payment.Amount, payment.PaidDate)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// ListExpirable returns ACTIVE policies whose end date passed before cutoff
func (r *PolicyRepository) ListExpirable(ctx context.Context, cutoff time.Time) ([]*models.Policy, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE status = ? AND end_date IS NOT NULL AND end_date < ?
	`, policyColumns, constants.TablePolicy)

	exec := r.tm.ExecutorFor(ctx)
	rows, err := exec.QueryContext(ctx, query, constants.PolicyStatusActive, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query expirable policies: %w", err)
	}
	defer rows.Close()

	var policies []*models.Policy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}
	return policies, rows.Err()
}

func (r *PolicyRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*models.Policy, error) {
	exec := r.tm.ExecutorFor(ctx)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query policy: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, apperrors.NewNotFoundError("policy", fmt.Sprint(args[0]))
	}
	return scanPolicy(rows)
}

func scanPolicy(rows *sql.Rows) (*models.Policy, error) {
	var policy models.Policy
	var initialApprover, finalApprover sql.NullString
	var initialDate, finalDate, endDate sql.NullTime

	err := rows.Scan(
		&policy.ID, &policy.CustomerID, &policy.PremiumAmount, &policy.Status,
		&policy.RiskScore, &initialApprover, &finalApprover, &initialDate,
		&finalDate, &endDate, &policy.CreatedDate, &policy.LastModifiedDate)
	if err != nil {
		return nil, fmt.Errorf("failed to scan policy: %w", err)
	}

	if initialApprover.Valid {
		policy.InitialApproverID = &initialApprover.String
	}
	if finalApprover.Valid {
		policy.FinalApproverID = &finalApprover.String
	}
	if initialDate.Valid {
		policy.InitialApprovalDate = &initialDate.Time
	}
	if finalDate.Valid {
		policy.FinalApprovalDate = &finalDate.Time
	}
	if endDate.Valid {
		policy.EndDate = &endDate.Time
	}

	return &policy, nil
}
