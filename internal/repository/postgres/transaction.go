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

type TransactionRepo struct {
	DB DBTX
}

const transactionColumns = `id, created_at, modified_at, user_id, project_id, quantity, price_per_credit,
	total_amount, currency, status, stripe_payment_id, hold_expires_at`

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (id, created_at, modified_at, user_id, project_id, quantity, price_per_credit,
	total_amount, currency, status, stripe_payment_id, hold_expires_at)
VALUES ($1, $2, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + transactionColumns

func (r *TransactionRepo) CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = models.TransactionStatusPending
	}

	rows, _ := r.DB.Query(ctx, createTransaction,
		t.ID, time.Now(), t.UserID, t.ProjectID, t.Quantity, t.PricePerCredit,
		t.TotalAmount, t.Currency, t.Status, t.StripePaymentID, t.HoldExpiresAt,
	)
	transaction, err := pgx.CollectOneRow(rows, rowToTransaction)
	if err != nil {
		return transaction, fmt.Errorf("db error: %w", err)
	}

	return transaction, nil
}

const getTransactionByStripeID = `-- name: GetTransactionByStripeID
SELECT ` + transactionColumns + ` FROM transactions
WHERE stripe_payment_id = $1
`

func (r *TransactionRepo) GetByStripePaymentID(ctx context.Context, stripePaymentID string) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, getTransactionByStripeID, stripePaymentID)
	transaction, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return transaction, nil
	case errors.Is(err, pgx.ErrNoRows):
		return transaction, apperrors.ErrTransactionNotFound
	default:
		return transaction, fmt.Errorf("db error: %w", err)
	}
}

// The PENDING guard makes the transition exactly-once: a redelivered webhook
// or a racing sweeper matches zero rows instead of rewriting a terminal state
const setTransactionStatus = `-- name: SetTransactionStatus
UPDATE transactions
SET status = $2, modified_at = now()
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + transactionColumns

const getTransaction = `-- name: GetTransaction
SELECT ` + transactionColumns + ` FROM transactions
WHERE id = $1
`

func (r *TransactionRepo) SetStatus(ctx context.Context, transactionID uuid.UUID, status string) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, setTransactionStatus, transactionID, status)
	transaction, err := pgx.CollectOneRow(rows, rowToTransaction)

	if errors.Is(err, pgx.ErrNoRows) {
		rows, _ := r.DB.Query(ctx, getTransaction, transactionID)
		transaction, getErr := pgx.CollectOneRow(rows, rowToTransaction)

		switch {
		case errors.Is(getErr, pgx.ErrNoRows):
			return transaction, apperrors.ErrTransactionNotFound
		case getErr != nil:
			return transaction, fmt.Errorf("db error: %w", getErr)
		default:
			return transaction, apperrors.ErrTransactionAlreadyFinal
		}
	}
	if err != nil {
		return transaction, fmt.Errorf("db error: %w", err)
	}

	return transaction, nil
}

const listTransactionsByUser = `-- name: ListTransactionsByUser
SELECT ` + transactionColumns + ` FROM transactions
WHERE user_id = $1 AND ($2 = '' OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

func (r *TransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID, opts repository.ListTransactionsOpts) ([]models.Transaction, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	rows, _ := r.DB.Query(ctx, listTransactionsByUser, userID, opts.Status, opts.Limit, opts.Offset)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

const listExpiredPending = `-- name: ListExpiredPending
SELECT ` + transactionColumns + ` FROM transactions
WHERE status = 'PENDING' AND hold_expires_at < $1
ORDER BY hold_expires_at
LIMIT $2
`

func (r *TransactionRepo) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, listExpiredPending, now, limit)
	transactions, err := pgx.CollectRows(rows, rowToTransaction)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return transactions, nil
}

const hasCompletedTransaction = `-- name: HasCompletedTransaction
SELECT EXISTS (
	SELECT 1 FROM transactions
	WHERE user_id = $1 AND project_id = $2 AND status = 'COMPLETED'
)
`

func (r *TransactionRepo) HasCompleted(ctx context.Context, userID uuid.UUID, projectID uuid.UUID) (bool, error) {
	rows, _ := r.DB.Query(ctx, hasCompletedTransaction, userID, projectID)
	completed, err := pgx.CollectOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return completed, nil
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID, &t.CreatedAt, &t.ModifiedAt, &t.UserID, &t.ProjectID, &t.Quantity,
		&t.PricePerCredit, &t.TotalAmount, &t.Currency, &t.Status, &t.StripePaymentID, &t.HoldExpiresAt,
	)
	return t, err
}
