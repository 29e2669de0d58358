package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/amanarcarbon/carbonmart/internal/models"
)

type ReviewRepo struct {
	DB DBTX
}

// One review per (project, user): a resubmission replaces rating and comment
// but keeps the original row and created_at
const upsertReview = `-- name: UpsertReview
INSERT INTO project_reviews (id, created_at, modified_at, project_id, user_id, rating, comment)
VALUES ($1, $2, $2, $3, $4, $5, $6)
ON CONFLICT (project_id, user_id)
DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, modified_at = EXCLUDED.modified_at
RETURNING id, created_at, modified_at, project_id, user_id, rating, comment
`

func (r *ReviewRepo) UpsertReview(ctx context.Context, review models.ProjectReview) (models.ProjectReview, error) {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, upsertReview,
		review.ID, time.Now(), review.ProjectID, review.UserID, review.Rating, review.Comment,
	)
	saved, err := pgx.CollectOneRow(rows, func(row pgx.CollectableRow) (models.ProjectReview, error) {
		var rv models.ProjectReview
		err := row.Scan(&rv.ID, &rv.CreatedAt, &rv.ModifiedAt, &rv.ProjectID, &rv.UserID, &rv.Rating, &rv.Comment)
		return rv, err
	})
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

const listReviewsByProject = `-- name: ListReviewsByProject
SELECT r.id, r.created_at, r.modified_at, r.project_id, r.user_id, u.name, r.rating, r.comment
FROM project_reviews r
JOIN users u ON u.id = r.user_id
WHERE r.project_id = $1
ORDER BY r.created_at DESC
LIMIT $2 OFFSET $3
`

func (r *ReviewRepo) ListByProject(ctx context.Context, projectID uuid.UUID, limit int, offset int) ([]models.ProjectReview, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, _ := r.DB.Query(ctx, listReviewsByProject, projectID, limit, offset)
	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ProjectReview, error) {
		var rv models.ProjectReview
		err := row.Scan(&rv.ID, &rv.CreatedAt, &rv.ModifiedAt, &rv.ProjectID, &rv.UserID, &rv.AuthorName, &rv.Rating, &rv.Comment)
		return rv, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return reviews, nil
}

const summarizeReviews = `-- name: SummarizeReviews
SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*)
FROM project_reviews
WHERE project_id = $1
`

func (r *ReviewRepo) Summarize(ctx context.Context, projectID uuid.UUID) (models.ReviewSummary, error) {
	var summary models.ReviewSummary
	err := r.DB.QueryRow(ctx, summarizeReviews, projectID).Scan(&summary.AverageRating, &summary.TotalReviews)
	if err != nil {
		return summary, fmt.Errorf("db error: %w", err)
	}

	return summary, nil
}
