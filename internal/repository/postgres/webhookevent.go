package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/models"
)

type WebhookEventRepo struct {
	DB DBTX
}

// ON CONFLICT DO NOTHING plus the affected-row check is the atomic
// check-and-insert: whichever delivery inserts the row wins, every other
// delivery of the same event sees zero rows
const recordWebhookEvent = `-- name: RecordWebhookEvent
INSERT INTO webhook_events (id, received_at, provider, event_id, event_type)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (provider, event_id) DO NOTHING
`

func (r *WebhookEventRepo) Record(ctx context.Context, event models.WebhookEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	tag, err := r.DB.Exec(ctx, recordWebhookEvent, event.ID, time.Now(), event.Provider, event.EventID, event.EventType)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrEventAlreadyProcessed)
	}

	return nil
}
