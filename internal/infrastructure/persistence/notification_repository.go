package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/pkg/constants"
)

// NotificationRepository stores delivered customer notifications
type NotificationRepository struct {
	db *sql.DB
	tm *TransactionManager
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *sql.DB, tm *TransactionManager) *NotificationRepository {
	return &NotificationRepository{db: db, tm: tm}
}

// Insert persists a notification. The ID is the producing event's ID;
// IGNORE makes a redelivered event a no-op instead of a duplicate row.
func (r *NotificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	query := fmt.Sprintf(`
		INSERT IGNORE INTO %s (id, customer_id, message, type, is_read, created_date)
		VALUES (?, ?, ?, ?, FALSE, NOW())
	`, constants.TableNotification)

	exec := r.tm.ExecutorFor(ctx)
	_, err := exec.ExecContext(ctx, query, n.ID, n.CustomerID, n.Message, n.Type)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListByCustomer returns a customer's notifications, newest first
func (r *NotificationRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*models.Notification, error) {
	query := fmt.Sprintf(`
		SELECT id, customer_id, message, type, is_read, created_date
		FROM %s
		WHERE customer_id = ?
		ORDER BY created_date DESC
		LIMIT ?
	`, constants.TableNotification)

	exec := r.tm.ExecutorFor(ctx)
	rows, err := exec.QueryContext(ctx, query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.CustomerID, &n.Message, &n.Type, &n.IsRead, &n.CreatedDate); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkRead marks a notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET is_read = TRUE WHERE id = ?
	`, constants.TableNotification)

	exec := r.tm.ExecutorFor(ctx)
	_, err := exec.ExecContext(ctx, query, id)
	return err
}
