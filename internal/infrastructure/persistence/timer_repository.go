package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/pkg/constants"
)

// TimerRepository persists durable TIMER continuations. Rows survive
// process restart; due rows are claimed with FOR UPDATE SKIP LOCKED so
// multiple pollers never fire the same timer twice.
type TimerRepository struct {
	db *sql.DB
	tm *TransactionManager
}

// NewTimerRepository creates a new TimerRepository
func NewTimerRepository(db *sql.DB, tm *TransactionManager) *TimerRepository {
	return &TimerRepository{db: db, tm: tm}
}

// Schedule inserts a new timer row
func (r *TimerRepository) Schedule(ctx context.Context, timer *models.WorkflowTimer) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, claim_id, resume_at, expected_step_order, next_step_order, fired, created_date)
		VALUES (?, ?, ?, ?, ?, FALSE, NOW())
	`, constants.TableWorkflowTimer)

	exec := r.tm.ExecutorFor(ctx)
	_, err := exec.ExecContext(ctx, query,
		timer.ID, timer.ClaimID, timer.ResumeAt, timer.ExpectedStepOrder, timer.NextStepOrder)
	if err != nil {
		return fmt.Errorf("failed to schedule timer: %w", err)
	}
	return nil
}

// ListDue returns due, unfired timers without locking them. The poller
// claims each one individually afterwards.
func (r *TimerRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.WorkflowTimer, error) {
	query := fmt.Sprintf(`
		SELECT id, claim_id, resume_at, expected_step_order, next_step_order, fired, created_date
		FROM %s
		WHERE fired = FALSE AND resume_at <= ?
		ORDER BY resume_at ASC
		LIMIT ?
	`, constants.TableWorkflowTimer)

	exec := r.tm.ExecutorFor(ctx)
	rows, err := exec.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due timers: %w", err)
	}
	defer rows.Close()

	var timers []*models.WorkflowTimer
	for rows.Next() {
		var t models.WorkflowTimer
		var nextOrder sql.NullInt64
		if err := rows.Scan(&t.ID, &t.ClaimID, &t.ResumeAt, &t.ExpectedStepOrder,
			&nextOrder, &t.Fired, &t.CreatedDate); err != nil {
			return nil, fmt.Errorf("failed to scan timer: %w", err)
		}
		if nextOrder.Valid {
			order := int(nextOrder.Int64)
			t.NextStepOrder = &order
		}
		timers = append(timers, &t)
	}
	return timers, rows.Err()
}

// ClaimPending locks the timer row and reports whether it is still
// unfired. Requires a transactional context; SKIP LOCKED lets concurrent
// pollers divide the work.
func (r *TimerRepository) ClaimPending(ctx context.Context, timerID string) (bool, error) {
	if r.tm.ExtractTx(ctx) == nil {
		return false, fmt.Errorf("transaction required for claiming timers")
	}

	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE id = ? AND fired = FALSE
		FOR UPDATE SKIP LOCKED
	`, constants.TableWorkflowTimer)

	exec := r.tm.ExecutorFor(ctx)
	var id string
	err := exec.QueryRowContext(ctx, query, timerID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim timer: %w", err)
	}
	return true, nil
}

// MarkFired marks a timer as consumed
func (r *TimerRepository) MarkFired(ctx context.Context, timerID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET fired = TRUE WHERE id = ?
	`, constants.TableWorkflowTimer)

	exec := r.tm.ExecutorFor(ctx)
	_, err := exec.ExecContext(ctx, query, timerID)
	return err
}
