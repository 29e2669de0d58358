package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/models"
)

type NotificationRepo struct {
	DB DBTX
}

const notificationColumns = `id, created_at, user_id, kind, title, message, read_at`

const createNotification = `-- name: CreateNotification
INSERT INTO notifications (id, created_at, user_id, kind, title, message)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + notificationColumns

func (r *NotificationRepo) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createNotification, n.ID, time.Now(), n.UserID, n.Kind, n.Title, n.Message)
	notification, err := pgx.CollectOneRow(rows, rowToNotification)
	if err != nil {
		return notification, fmt.Errorf("db error: %w", err)
	}

	return notification, nil
}

const listNotificationsByUser = `-- name: ListNotificationsByUser
SELECT ` + notificationColumns + ` FROM notifications
WHERE user_id = $1
ORDER BY read_at NULLS FIRST, created_at DESC
LIMIT $2 OFFSET $3
`

func (r *NotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, _ := r.DB.Query(ctx, listNotificationsByUser, userID, limit, offset)
	notifications, err := pgx.CollectRows(rows, rowToNotification)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return notifications, nil
}

const markNotificationRead = `-- name: MarkNotificationRead
UPDATE notifications
SET read_at = COALESCE(read_at, $3)
WHERE id = $1 AND user_id = $2
RETURNING read_at
`

func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) (time.Time, error) {
	rows, _ := r.DB.Query(ctx, markNotificationRead, notificationID, userID, time.Now())
	readAt, err := pgx.CollectOneRow(rows, pgx.RowTo[time.Time])

	switch {
	case err == nil:
		return readAt, nil
	case errors.Is(err, pgx.ErrNoRows):
		return readAt, apperrors.ErrNotificationNotFound
	default:
		return readAt, fmt.Errorf("db error: %w", err)
	}
}

func rowToNotification(row pgx.CollectableRow) (models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.CreatedAt, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.ReadAt)
	return n, err
}
