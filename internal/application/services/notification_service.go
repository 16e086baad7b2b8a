package services

import (
	"context"
	"log"

	"github.com/coverline/backend/internal/domain/events"
	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/internal/domain/ports"
)

// NotificationService consumes NotificationRequested events off the bus
// and persists customer notifications. Delivery is decoupled from the
// producing transaction: the outbox worker retries on failure. The
// notification row is keyed by the event ID, so a redelivered event
// (another subscriber failed after this one succeeded) inserts nothing.
type NotificationService struct {
	repo ports.NotificationStore
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo ports.NotificationStore) *NotificationService {
	return &NotificationService{repo: repo}
}

// RegisterHandlers subscribes the service to the event bus
func (s *NotificationService) RegisterHandlers(bus *EventBus) {
	bus.Subscribe(events.NotificationRequested, s.handleNotificationRequested)
	bus.Subscribe(events.ClaimStatusChanged, s.handleStatusChanged)
	bus.Subscribe(events.PolicyStatusChanged, s.handleStatusChanged)
}

func (s *NotificationService) handleNotificationRequested(ctx context.Context, event PlatformEvent) error {
	p, ok := event.Payload.(events.NotificationPayload)
	if !ok {
		log.Printf("⚠️ Notification: unexpected payload type %T, dropping", event.Payload)
		return nil
	}

	notification := &models.Notification{
		ID:         event.ID,
		CustomerID: p.CustomerID,
		Message:    p.Message,
		Type:       p.Type,
	}
	if err := s.repo.Insert(ctx, notification); err != nil {
		return err
	}

	log.Printf("🔔 Notification delivered to customer %s", p.CustomerID)
	return nil
}

// handleStatusChanged records status transitions in the log. Kept separate
// from customer-facing notifications; producers request those explicitly.
func (s *NotificationService) handleStatusChanged(ctx context.Context, event PlatformEvent) error {
	p, ok := event.Payload.(events.StatusChangePayload)
	if !ok {
		return nil
	}
	log.Printf("📋 Status change: entity %s %s -> %s", p.EntityID, p.OldStatus, p.NewStatus)
	return nil
}

// ListForCustomer returns a customer's notifications, newest first
func (s *NotificationService) ListForCustomer(ctx context.Context, customerID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByCustomer(ctx, customerID, limit)
}

// MarkRead marks a notification as read
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	return s.repo.MarkRead(ctx, id)
}
