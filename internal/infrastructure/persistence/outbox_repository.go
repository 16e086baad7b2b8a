package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coverline/backend/pkg/constants"
	"github.com/coverline/backend/pkg/utils"
)

// Outbox event status values
const (
	OutboxStatusPending   = "pending"
	OutboxStatusProcessed = "processed"
	OutboxStatusFailed    = "failed"
)

// OutboxEvent represents a persisted event record
type OutboxEvent struct {
	ID               string
	EventType        string
	Payload          string
	Status           string
	RetryCount       int
	ErrorMessage     string
	CreatedDate      time.Time
	ProcessedDate    sql.NullTime
	LastModifiedDate time.Time
}

// OutboxRepository handles database operations for the outbox pattern.
// Enqueue joins the transaction carried by the context, so a notification
// commits or rolls back atomically with the business operation that
// produced it.
type OutboxRepository struct {
	db *sql.DB
	tm *TransactionManager
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *sql.DB, tm *TransactionManager) *OutboxRepository {
	return &OutboxRepository{db: db, tm: tm}
}

// Enqueue inserts a new pending event into the outbox
func (r *OutboxRepository) Enqueue(ctx context.Context, eventType string, payload interface{}) (string, error) {
	id := utils.GenerateID()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, event_type, payload, status, retry_count, created_date, last_modified_date)
		VALUES (?, ?, ?, ?, 0, NOW(), NOW())
	`, constants.TableOutboxEvent)

	exec := r.tm.ExecutorFor(ctx)
	_, err = exec.ExecContext(ctx, query, id, eventType, payloadJSON, OutboxStatusPending)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue event: %w", err)
	}

	return id, nil
}

// GetPendingEvents retrieves pending events ordered by creation time
func (r *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]OutboxEvent, error) {
	query := fmt.Sprintf(`
		SELECT id, event_type, payload, retry_count
		FROM %s
		WHERE status = ?
		ORDER BY created_date ASC
		LIMIT ?
	`, constants.TableOutboxEvent)

	rows, err := r.db.QueryContext(ctx, query, OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload, &e.RetryCount); err != nil {
			continue
		}
		events = append(events, e)
	}

	return events, nil
}

// ClaimEvent attempts to lock a specific pending event for processing.
// Returns "" when another worker already claimed it.
func (r *OutboxRepository) ClaimEvent(ctx context.Context, exec Executor, id string) (string, error) {
	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE id = ? AND status = ?
		FOR UPDATE SKIP LOCKED
	`, constants.TableOutboxEvent)

	var claimedID string
	err := exec.QueryRowContext(ctx, query, id, OutboxStatusPending).Scan(&claimedID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return claimedID, nil
}

// UpdateStatus updates the status and related fields of an event
func (r *OutboxRepository) UpdateStatus(ctx context.Context, exec Executor, id string, status string, errMessage string) error {
	var query string
	var args []interface{}

	switch status {
	case OutboxStatusProcessed:
		query = fmt.Sprintf(`
			UPDATE %s
			SET status = ?, processed_date = NOW(), last_modified_date = NOW()
			WHERE id = ?
		`, constants.TableOutboxEvent)
		args = []interface{}{status, id}
	case OutboxStatusFailed:
		query = fmt.Sprintf(`
			UPDATE %s
			SET status = ?, error_message = ?, last_modified_date = NOW()
			WHERE id = ?
		`, constants.TableOutboxEvent)
		args = []interface{}{status, errMessage, id}
	default:
		return fmt.Errorf("unsupported status update: %s", status)
	}

	_, err := exec.ExecContext(ctx, query, args...)
	return err
}

// IncrementRetry increments the retry count and updates the error message
func (r *OutboxRepository) IncrementRetry(ctx context.Context, exec Executor, id string, newCount int, errMessage string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET retry_count = ?, error_message = ?, last_modified_date = NOW()
		WHERE id = ?
	`, constants.TableOutboxEvent)

	_, err := exec.ExecContext(ctx, query, newCount, errMessage, id)
	return err
}

// CleanupProcessed deletes old processed events
func (r *OutboxRepository) CleanupProcessed(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE status = ? AND processed_date < ?
	`, constants.TableOutboxEvent)

	result, err := r.db.ExecContext(ctx, query, OutboxStatusProcessed, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
