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
	"github.com/amanarcarbon/carbonmart/internal/repository"
)

type ProjectRepo struct {
	DB DBTX
}

const projectColumns = `id, created_at, modified_at, owner_id, title, description, location, country,
	project_type, standard, methodology, estimated_credits, price_per_credit, status,
	start_date, end_date, verified_at`

const createProject = `-- name: CreateProject
INSERT INTO carbon_projects (id, created_at, modified_at, owner_id, title, description, location, country,
	project_type, standard, methodology, estimated_credits, price_per_credit, status, start_date, end_date)
VALUES ($1, $2, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING ` + projectColumns

func (r *ProjectRepo) CreateProject(ctx context.Context, p models.CarbonProject) (models.CarbonProject, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = models.ProjectStatusPending
	}

	rows, _ := r.DB.Query(ctx, createProject,
		p.ID, time.Now(), p.OwnerID, p.Title, p.Description, p.Location, p.Country,
		p.ProjectType, p.Standard, p.Methodology, p.EstimatedCredits, p.PricePerCredit,
		p.Status, p.StartDate, p.EndDate,
	)
	project, err := pgx.CollectOneRow(rows, rowToProject)
	if err != nil {
		return project, fmt.Errorf("db error: %w", err)
	}

	return project, nil
}

const getProject = `-- name: GetProject
SELECT ` + projectColumns + ` FROM carbon_projects
WHERE id = $1
`

func (r *ProjectRepo) GetProject(ctx context.Context, projectID uuid.UUID) (models.CarbonProject, error) {
	rows, _ := r.DB.Query(ctx, getProject, projectID)
	project, err := pgx.CollectOneRow(rows, rowToProject)

	switch {
	case err == nil:
		return project, nil
	case errors.Is(err, pgx.ErrNoRows):
		return project, apperrors.ErrProjectNotFound
	default:
		return project, fmt.Errorf("db error: %w", err)
	}
}

const listProjects = `-- name: ListProjects
SELECT ` + projectColumns + ` FROM carbon_projects
WHERE ($1 = '' OR status = $1)
  AND ($2 = '' OR project_type = $2)
  AND ($3 = '' OR country = $3)
  AND ($4::numeric IS NULL OR price_per_credit >= $4)
  AND ($5::numeric IS NULL OR price_per_credit <= $5)
ORDER BY created_at DESC
LIMIT $6 OFFSET $7
`

func (r *ProjectRepo) ListProjects(ctx context.Context, opts repository.ListProjectsOpts) ([]models.CarbonProject, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	rows, _ := r.DB.Query(ctx, listProjects,
		opts.Status, opts.ProjectType, opts.Country, opts.MinPrice, opts.MaxPrice,
		opts.Limit, opts.Offset,
	)
	projects, err := pgx.CollectRows(rows, rowToProject)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return projects, nil
}

// Conditional transition: only projects still awaiting review may be verified
const setProjectVerified = `-- name: SetProjectVerified
UPDATE carbon_projects
SET status = 'VERIFIED', verified_at = $2, modified_at = $2
WHERE id = $1 AND status IN ('PENDING', 'UNDER_REVIEW')
RETURNING ` + projectColumns

func (r *ProjectRepo) SetVerified(ctx context.Context, projectID uuid.UUID, verifiedAt time.Time) (models.CarbonProject, error) {
	rows, _ := r.DB.Query(ctx, setProjectVerified, projectID, verifiedAt)
	project, err := pgx.CollectOneRow(rows, rowToProject)

	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing project from one already reviewed
		_, getErr := r.GetProject(ctx, projectID)
		if getErr != nil {
			return project, getErr
		}
		return project, apperrors.ErrProjectNotPending
	}
	if err != nil {
		return project, fmt.Errorf("db error: %w", err)
	}

	return project, nil
}

const setProjectRejected = `-- name: SetProjectRejected
UPDATE carbon_projects
SET status = 'REJECTED', modified_at = $2
WHERE id = $1 AND status IN ('PENDING', 'UNDER_REVIEW')
RETURNING ` + projectColumns

func (r *ProjectRepo) SetRejected(ctx context.Context, projectID uuid.UUID, rejectedAt time.Time) (models.CarbonProject, error) {
	rows, _ := r.DB.Query(ctx, setProjectRejected, projectID, rejectedAt)
	project, err := pgx.CollectOneRow(rows, rowToProject)

	if errors.Is(err, pgx.ErrNoRows) {
		_, getErr := r.GetProject(ctx, projectID)
		if getErr != nil {
			return project, getErr
		}
		return project, apperrors.ErrProjectNotPending
	}
	if err != nil {
		return project, fmt.Errorf("db error: %w", err)
	}

	return project, nil
}

func rowToProject(row pgx.CollectableRow) (models.CarbonProject, error) {
	var p models.CarbonProject
	err := row.Scan(
		&p.ID, &p.CreatedAt, &p.ModifiedAt, &p.OwnerID, &p.Title, &p.Description,
		&p.Location, &p.Country, &p.ProjectType, &p.Standard, &p.Methodology,
		&p.EstimatedCredits, &p.PricePerCredit, &p.Status, &p.StartDate, &p.EndDate, &p.VerifiedAt,
	)
	return p, err
}
