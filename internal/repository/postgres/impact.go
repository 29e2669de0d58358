package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/amanarcarbon/carbonmart/internal/models"
)

type ImpactRepo struct {
	DB DBTX
}

const impactColumns = `id, created_at, user_id, project_id, impact_type, value, unit, description, verified`

const createImpact = `-- name: CreateImpact
INSERT INTO user_impacts (id, created_at, user_id, project_id, impact_type, value, unit, description, verified)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + impactColumns

func (r *ImpactRepo) CreateImpact(ctx context.Context, i models.UserImpact) (models.UserImpact, error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createImpact,
		i.ID, time.Now(), i.UserID, i.ProjectID, i.ImpactType, i.Value, i.Unit, i.Description, i.Verified,
	)
	impact, err := pgx.CollectOneRow(rows, rowToImpact)
	if err != nil {
		return impact, fmt.Errorf("db error: %w", err)
	}

	return impact, nil
}

const listImpactsByUser = `-- name: ListImpactsByUser
SELECT ` + impactColumns + ` FROM user_impacts
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`

func (r *ImpactRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.UserImpact, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, _ := r.DB.Query(ctx, listImpactsByUser, userID, limit, offset)
	impacts, err := pgx.CollectRows(rows, rowToImpact)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return impacts, nil
}

const summarizeImpact = `-- name: SummarizeImpact
SELECT COALESCE(sum(value) FILTER (WHERE impact_type = 'CARBON_OFFSET'), 0), count(*)
FROM user_impacts
WHERE user_id = $1
`

func (r *ImpactRepo) Summarize(ctx context.Context, userID uuid.UUID) (models.ImpactSummary, error) {
	var summary models.ImpactSummary
	var total decimal.Decimal

	err := r.DB.QueryRow(ctx, summarizeImpact, userID).Scan(&total, &summary.Entries)
	if err != nil {
		return summary, fmt.Errorf("db error: %w", err)
	}

	summary.TotalOffset = total
	return summary, nil
}

func rowToImpact(row pgx.CollectableRow) (models.UserImpact, error) {
	var i models.UserImpact
	err := row.Scan(&i.ID, &i.CreatedAt, &i.UserID, &i.ProjectID, &i.ImpactType, &i.Value, &i.Unit, &i.Description, &i.Verified)
	return i, err
}
