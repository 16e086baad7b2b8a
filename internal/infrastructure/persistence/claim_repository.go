package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/pkg/constants"
	apperrors "github.com/coverline/backend/pkg/errors"
)

// claimColumns is the canonical select list for claim rows
const claimColumns = "id, policy_id, customer_id, description, amount, claim_status, " +
	"workflow_id, current_step_order, risk_score, risk_level, risk_flags, admin_id, " +
	"status_log, created_date, last_modified_date"

// ClaimRepository handles database operations for claims. All step
// advancement goes through the conditional update in AdvanceStep so a
// transition is never applied twice for the same current value.
type ClaimRepository struct {
	db *sql.DB
	tm *TransactionManager
}

// NewClaimRepository creates a new ClaimRepository
func NewClaimRepository(db *sql.DB, tm *TransactionManager) *ClaimRepository {
	return &ClaimRepository{db: db, tm: tm}
}

// Insert creates a new claim row
func (r *ClaimRepository) Insert(ctx context.Context, claim *models.Claim) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, policy_id, customer_id, description, amount, claim_status,
			workflow_id, current_step_order, risk_score, risk_level, risk_flags, admin_id,
			status_log, created_date, last_modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, constants.TableClaim)

	exec := r.tm.ExecutorFor(ctx)
	_, err := exec.ExecContext(ctx, query,
		claim.ID, claim.PolicyID, claim.CustomerID, claim.Description, claim.Amount,
		claim.Status, claim.WorkflowID, claim.CurrentStepOrder, claim.RiskScore,
		claim.RiskLevel, claim.RiskFlags, claim.AdminID, claim.StatusLog)
	if err != nil {
		return fmt.Errorf("failed to insert claim: %w", err)
	}
	return nil
}

// Get retrieves a claim by ID without locking
func (r *ClaimRepository) Get(ctx context.Context, claimID string) (*models.Claim, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", claimColumns, constants.TableClaim)
	return r.scanOne(ctx, query, claimID)
}

// GetForUpdate retrieves a claim by ID under an exclusive row lock.
// Requires a transactional context; locking outside a transaction is a bug.
func (r *ClaimRepository) GetForUpdate(ctx context.Context, claimID string) (*models.Claim, error) {
	if r.tm.ExtractTx(ctx) == nil {
		return nil, fmt.Errorf("transaction required for locking claim %s", claimID)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? FOR UPDATE", claimColumns, constants.TableClaim)
	return r.scanOne(ctx, query, claimID)
}

// AdvanceStep conditionally moves current_step_order from fromOrder to to
// (nil clears it). Returns true when exactly one row changed; false means
// the claim already advanced elsewhere and the caller must treat the
// operation as a no-op.
func (r *ClaimRepository) AdvanceStep(ctx context.Context, claimID string, fromOrder int, to *int) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET current_step_order = ?, last_modified_date = NOW()
		WHERE id = ? AND current_step_order = ?
	`, constants.TableClaim)

	exec := r.tm.ExecutorFor(ctx)
	result, err := exec.ExecContext(ctx, query, to, claimID, fromOrder)
	if err != nil {
		return false, fmt.Errorf("failed to advance claim step: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// SetStatus updates the claim status
func (r *ClaimRepository) SetStatus(ctx context.Context, claimID, status string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET claim_status = ?, last_modified_date = NOW() WHERE id = ?
	`, constants.TableClaim)

	exec := r.tm.ExecutorFor(ctx)
	_, err := exec.ExecContext(ctx, query, status, claimID)
	return err
}

// AssignAdmin sets the handling admin for a claim
func (r *ClaimRepository) AssignAdmin(ctx context.Context, claimID, adminID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET admin_id = ?, last_modified_date = NOW() WHERE id = ?
	`, constants.TableClaim)

	exec := r.tm.ExecutorFor(ctx)
	_, err := exec.ExecContext(ctx, query, adminID, claimID)
	return err
}

// AppendStatusLog appends a line to the claim's append-only audit trail
func (r *ClaimRepository) AppendStatusLog(ctx context.Context, claimID, line string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status_log = CONCAT(status_log, ?), last_modified_date = NOW()
		WHERE id = ?
	`, constants.TableClaim)

	exec := r.tm.ExecutorFor(ctx)
	_, err := exec.ExecContext(ctx, query, line+"\n", claimID)
	return err
}

func (r *ClaimRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*models.Claim, error) {
	exec := r.tm.ExecutorFor(ctx)
	row := exec.QueryRowContext(ctx, query, args...)

	var claim models.Claim
	var workflowID, adminID sql.NullString
	var stepOrder sql.NullInt64

	err := row.Scan(
		&claim.ID, &claim.PolicyID, &claim.CustomerID, &claim.Description,
		&claim.Amount, &claim.Status, &workflowID, &stepOrder, &claim.RiskScore,
		&claim.RiskLevel, &claim.RiskFlags, &adminID, &claim.StatusLog,
		&claim.CreatedDate, &claim.LastModifiedDate)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("claim", fmt.Sprint(args[0]))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan claim: %w", err)
	}

	if workflowID.Valid {
		claim.WorkflowID = &workflowID.String
	}
	if stepOrder.Valid {
		order := int(stepOrder.Int64)
		claim.CurrentStepOrder = &order
	}
	if adminID.Valid {
		claim.AdminID = &adminID.String
	}

	return &claim, nil
}
