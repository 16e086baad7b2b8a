package events

// EventType identifies an event flowing through the outbox and event bus
type EventType string

const (
	// NotificationRequested asks the notification consumer to deliver a
	// customer message. Enqueued transactionally with the state change that
	// caused it.
	NotificationRequested EventType = "notification.requested"
	// ClaimStatusChanged is emitted when the engine or an admin decision
	// moves a claim to a new status.
	ClaimStatusChanged EventType = "claim.status_changed"
	// PolicyStatusChanged is emitted on every policy lifecycle transition.
	PolicyStatusChanged EventType = "policy.status_changed"
)

// NotificationPayload is the outbox payload for NotificationRequested
type NotificationPayload struct {
	CustomerID string `json:"customer_id"`
	Message    string `json:"message"`
	Type       string `json:"type"`
}

// StatusChangePayload is the outbox payload for status-change events
type StatusChangePayload struct {
	EntityID   string `json:"entity_id"`
	CustomerID string `json:"customer_id"`
	OldStatus  string `json:"old_status"`
	NewStatus  string `json:"new_status"`
}
