package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/coverline/backend/internal/domain/events"
	"github.com/coverline/backend/pkg/utils"
)

// EventType is an alias to the domain type
type EventType = events.EventType

// EventHandler is a function that handles an event. A redelivered event
// carries the same ID, so handlers with side effects must key them on
// event.ID: a later handler's failure retries the whole event, including
// handlers that already succeeded.
type EventHandler func(ctx context.Context, event PlatformEvent) error

// PlatformEvent represents an event flowing through the bus. ID is the
// outbox row ID and is stable across redeliveries.
type PlatformEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

// EventBus manages the in-process publish-subscribe event system. The
// outbox worker publishes persisted events here; consumers (notification
// delivery, audit) subscribe at startup.
type EventBus struct {
	handlers map[EventType][]EventHandler
	mu       sync.RWMutex
}

// NewEventBus creates a new EventBus instance
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// Publish publishes an event to all registered handlers in sequence.
// The first handler error aborts delivery and propagates to the caller,
// which for the outbox worker means a retry under the same event ID.
func (eb *EventBus) Publish(ctx context.Context, eventID string, eventType EventType, payload interface{}) error {
	eb.mu.RLock()
	handlers := eb.handlers[eventType]
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	event := PlatformEvent{
		ID:        eventID,
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			return fmt.Errorf("EventBus handler error for %s: %w", eventType, err)
		}
	}

	return nil
}

// PublishAsync publishes an event asynchronously under a fresh ID
func (eb *EventBus) PublishAsync(eventType EventType, payload interface{}) {
	go func() {
		if err := eb.Publish(context.Background(), utils.GenerateID(), eventType, payload); err != nil {
			log.Printf("EventBus async publish error: %v", err)
		}
	}()
}

// Clear removes all handlers (useful for testing)
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers = make(map[EventType][]EventHandler)
}
