package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/coverline/backend/internal/domain/events"
	"github.com/coverline/backend/internal/domain/ports"
	"github.com/coverline/backend/internal/infrastructure/persistence"
)

// MaxRetryAttempts caps redelivery of a failing outbox event
const MaxRetryAttempts = 5

// OutboxService handles transactional event storage and async publishing.
// It implements the outbox pattern for guaranteed event delivery: a state
// change and its event commit together, and a separate worker publishes
// the event to the in-process bus afterwards. Implements ports.EventOutbox.
type OutboxService struct {
	db       *sql.DB
	repo     *persistence.OutboxRepository
	eventBus *EventBus

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ ports.EventOutbox = (*OutboxService)(nil)

// NewOutboxService creates a new OutboxService
func NewOutboxService(db *sql.DB, repo *persistence.OutboxRepository, eventBus *EventBus) *OutboxService {
	return &OutboxService{
		db:       db,
		repo:     repo,
		eventBus: eventBus,
		stopCh:   make(chan struct{}),
	}
}

// Enqueue stores an event in the outbox table. When the context carries a
// transaction the insert joins it, so the event is persisted atomically
// with the business operation.
func (os *OutboxService) Enqueue(ctx context.Context, eventType events.EventType, payload interface{}) error {
	id, err := os.repo.Enqueue(ctx, string(eventType), payload)
	if err != nil {
		return err
	}
	log.Printf("✅ [Outbox] Enqueued event %s (ID: %s)", eventType, id)
	return nil
}

// StartWorker starts the background worker that processes pending outbox
// events at the given interval.
func (os *OutboxService) StartWorker(interval time.Duration) {
	os.wg.Add(1)
	go func() {
		defer os.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Printf("📤 Outbox worker started with %v interval", interval)

		for {
			select {
			case <-os.stopCh:
				log.Printf("📤 Outbox worker stopping...")
				return
			case <-ticker.C:
				if err := os.ProcessOutbox(context.Background()); err != nil {
					log.Printf("⚠️ Outbox worker error: %v", err)
				}
			}
		}
	}()
}

// StopWorker stops the background worker gracefully
func (os *OutboxService) StopWorker() {
	os.stopOnce.Do(func() {
		close(os.stopCh)
	})
	os.wg.Wait()
	log.Printf("📤 Outbox worker stopped")
}

// ProcessOutbox processes all pending events in the outbox table. Each
// event is claimed, published, and marked in its own transaction.
func (os *OutboxService) ProcessOutbox(ctx context.Context) error {
	pending, err := os.repo.GetPendingEvents(ctx, 100)
	if err != nil {
		return err
	}

	if len(pending) > 0 {
		log.Printf("🔄 [Outbox] Processing %d pending events", len(pending))
	}

	for _, e := range pending {
		if err := os.processEventAtomic(ctx, e.ID, e.EventType, e.Payload, e.RetryCount); err != nil {
			log.Printf("⚠️ Failed to process outbox event %s: %v", e.ID, err)
		}
	}

	return nil
}

// processEventAtomic claims an event, publishes it, and updates status atomically
func (os *OutboxService) processEventAtomic(ctx context.Context, id, eventType, payloadJSON string, retryCount int) error {
	tx, err := os.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	claimedID, err := os.repo.ClaimEvent(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("failed to claim event: %w", err)
	}
	if claimedID == "" {
		return nil // Another worker has it
	}

	payload, err := decodePayload(eventType, payloadJSON)
	if err != nil {
		log.Printf("❌ [Outbox] Event %s failed payload decode: %v", id, err)
		if markErr := os.repo.UpdateStatus(ctx, tx, id, persistence.OutboxStatusFailed, fmt.Sprintf("invalid payload: %v", err)); markErr != nil {
			return fmt.Errorf("failed to mark event as failed: %w", markErr)
		}
		return tx.Commit()
	}

	if err := os.eventBus.Publish(ctx, id, events.EventType(eventType), payload); err != nil {
		newRetryCount := retryCount + 1
		if newRetryCount >= MaxRetryAttempts {
			if markErr := os.repo.UpdateStatus(ctx, tx, id, persistence.OutboxStatusFailed, fmt.Sprintf("max retries exceeded: %v", err)); markErr != nil {
				return fmt.Errorf("failed to mark event as failed: %w", markErr)
			}
			return tx.Commit()
		}

		if updateErr := os.repo.IncrementRetry(ctx, tx, id, newRetryCount, err.Error()); updateErr != nil {
			return fmt.Errorf("failed to update retry count: %w", updateErr)
		}
		log.Printf("⚠️ [Outbox] Event %s failed (Attempt %d/%d). Error: %v", id, newRetryCount, MaxRetryAttempts, err)
		return tx.Commit()
	}

	if err := os.repo.UpdateStatus(ctx, tx, id, persistence.OutboxStatusProcessed, ""); err != nil {
		return fmt.Errorf("failed to mark as processed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("✅ [Outbox] Successfully processed event %s (Type: %s)", id, eventType)
	return nil
}

// CleanupProcessed removes old processed events from the outbox. Called
// from the scheduler's nightly sweep to prevent table bloat.
func (os *OutboxService) CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	return os.repo.CleanupProcessed(ctx, cutoff)
}

// decodePayload rebuilds the typed payload for an event type so
// subscribers can assert on concrete structs.
func decodePayload(eventType, payloadJSON string) (interface{}, error) {
	switch events.EventType(eventType) {
	case events.NotificationRequested:
		var p events.NotificationPayload
		if err := json.Unmarshal([]byte(payloadJSON), &p); err != nil {
			return nil, err
		}
		return p, nil
	case events.ClaimStatusChanged, events.PolicyStatusChanged:
		var p events.StatusChangePayload
		if err := json.Unmarshal([]byte(payloadJSON), &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		var p map[string]interface{}
		if err := json.Unmarshal([]byte(payloadJSON), &p); err != nil {
			return nil, err
		}
		return p, nil
	}
}
