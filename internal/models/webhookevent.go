package models

import (
	"time"

	"github.com/google/uuid"
)

const WebhookProviderStripe = "stripe"

// WebhookEvent is the idempotency ledger row for a processor callback.
// (provider, event_id) is unique: inserting it a second time is how
// duplicate deliveries are detected.
type WebhookEvent struct {
	ID         uuid.UUID
	ReceivedAt time.Time
	Provider   string
	EventID    string
	EventType  string
}
