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

type CreditRepo struct {
	DB DBTX
}

const creditColumns = `id, created_at, modified_at, project_id, serial_number, vintage, price, status,
	owner_id, transaction_id, reserved_until, retired_at`

const issueCredits = `-- name: IssueCredits
INSERT INTO carbon_credits (id, created_at, modified_at, project_id, serial_number, vintage, price, status)
SELECT gen_random_uuid(), $4, $4, $1, upper(left($1::text, 8)) || '-' || $2::text || '-' || lpad(n::text, 6, '0'), $2, $5, 'AVAILABLE'
FROM generate_series(1, $3::bigint) AS n
`

// IssueCredits creates the project inventory: one row per estimated credit,
// serial numbers derived from the project id and vintage year
func (r *CreditRepo) IssueCredits(ctx context.Context, project models.CarbonProject, vintage int) (int64, error) {
	tag, err := r.DB.Exec(ctx, issueCredits, project.ID, vintage, project.EstimatedCredits, time.Now(), project.PricePerCredit)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

const countAvailable = `-- name: CountAvailable
SELECT count(*) FROM carbon_credits
WHERE project_id = $1 AND status = 'AVAILABLE'
`

func (r *CreditRepo) CountAvailable(ctx context.Context, projectID uuid.UUID) (int64, error) {
	rows, _ := r.DB.Query(ctx, countAvailable, projectID)
	count, err := pgx.CollectOneRow(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}

// The availability check and the state transition are one statement, so two
// concurrent checkouts can never both take the last units. SKIP LOCKED keeps
// concurrent reservations from queueing on each other's rows.
const reserveCredits = `-- name: ReserveCredits
WITH picked AS (
	SELECT id FROM carbon_credits
	WHERE project_id = $1 AND status = 'AVAILABLE'
	ORDER BY serial_number
	LIMIT $3
	FOR UPDATE SKIP LOCKED
)
UPDATE carbon_credits c
SET status = 'RESERVED', transaction_id = $2, reserved_until = $4, modified_at = now()
FROM picked
WHERE c.id = picked.id
`

// Reserve moves up to 'quantity' AVAILABLE credits to RESERVED and returns how
// many actually moved. The caller decides whether a partial reservation is an
// error and must roll back in that case.
func (r *CreditRepo) Reserve(ctx context.Context, projectID uuid.UUID, transactionID uuid.UUID, quantity int64, until time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, reserveCredits, projectID, transactionID, quantity, until)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

const markCreditsSold = `-- name: MarkCreditsSold
UPDATE carbon_credits
SET status = 'SOLD', owner_id = $2, reserved_until = NULL, modified_at = now()
WHERE transaction_id = $1 AND status = 'RESERVED'
`

func (r *CreditRepo) MarkSold(ctx context.Context, transactionID uuid.UUID, ownerID uuid.UUID) (int64, error) {
	tag, err := r.DB.Exec(ctx, markCreditsSold, transactionID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

const releaseCredits = `-- name: ReleaseCredits
UPDATE carbon_credits
SET status = 'AVAILABLE', transaction_id = NULL, reserved_until = NULL, modified_at = now()
WHERE transaction_id = $1 AND status = 'RESERVED'
`

func (r *CreditRepo) Release(ctx context.Context, transactionID uuid.UUID) (int64, error) {
	tag, err := r.DB.Exec(ctx, releaseCredits, transactionID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return tag.RowsAffected(), nil
}

const retireCredit = `-- name: RetireCredit
UPDATE carbon_credits
SET status = 'RETIRED', retired_at = $3, modified_at = $3
WHERE id = $1 AND owner_id = $2 AND status = 'SOLD'
RETURNING ` + creditColumns

const getCredit = `-- name: GetCredit
SELECT ` + creditColumns + ` FROM carbon_credits
WHERE id = $1
`

func (r *CreditRepo) Retire(ctx context.Context, creditID uuid.UUID, ownerID uuid.UUID, retiredAt time.Time) (models.CarbonCredit, error) {
	rows, _ := r.DB.Query(ctx, retireCredit, creditID, ownerID, retiredAt)
	credit, err := pgx.CollectOneRow(rows, rowToCredit)

	if errors.Is(err, pgx.ErrNoRows) {
		// Figure out which precondition failed
		rows, _ := r.DB.Query(ctx, getCredit, creditID)
		credit, getErr := pgx.CollectOneRow(rows, rowToCredit)

		switch {
		case errors.Is(getErr, pgx.ErrNoRows):
			return credit, apperrors.ErrCreditNotFound
		case getErr != nil:
			return credit, fmt.Errorf("db error: %w", getErr)
		case credit.OwnerID == nil || *credit.OwnerID != ownerID:
			return credit, apperrors.ErrCreditNotOwned
		default:
			return credit, apperrors.ErrCreditNotSold
		}
	}
	if err != nil {
		return credit, fmt.Errorf("db error: %w", err)
	}

	return credit, nil
}

const listCreditsByProject = `-- name: ListCreditsByProject
SELECT ` + creditColumns + ` FROM carbon_credits
WHERE project_id = $1 AND ($2 = '' OR status = $2)
ORDER BY serial_number
LIMIT $3 OFFSET $4
`

func (r *CreditRepo) ListByProject(ctx context.Context, projectID uuid.UUID, status string, limit int, offset int) ([]models.CarbonCredit, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, _ := r.DB.Query(ctx, listCreditsByProject, projectID, status, limit, offset)
	credits, err := pgx.CollectRows(rows, rowToCredit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return credits, nil
}

const listOwnedCredits = `-- name: ListOwnedCredits
SELECT ` + creditColumns + ` FROM carbon_credits
WHERE owner_id = $1
ORDER BY modified_at DESC
`

func (r *CreditRepo) ListOwned(ctx context.Context, ownerID uuid.UUID) ([]models.CarbonCredit, error) {
	rows, _ := r.DB.Query(ctx, listOwnedCredits, ownerID)
	credits, err := pgx.CollectRows(rows, rowToCredit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return credits, nil
}

func rowToCredit(row pgx.CollectableRow) (models.CarbonCredit, error) {
	var c models.CarbonCredit
	err := row.Scan(
		&c.ID, &c.CreatedAt, &c.ModifiedAt, &c.ProjectID, &c.SerialNumber, &c.Vintage,
		&c.Price, &c.Status, &c.OwnerID, &c.TransactionID, &c.ReservedUntil, &c.RetiredAt,
	)
	return c, err
}
