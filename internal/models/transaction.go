package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction status transitions: PENDING -> COMPLETED | FAILED | CANCELLED.
// All three end states are terminal.
const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusFailed    = "FAILED"
	TransactionStatusCancelled = "CANCELLED"
)

type Transaction struct {
	ID              uuid.UUID
	CreatedAt       time.Time
	ModifiedAt      time.Time
	UserID          uuid.UUID
	ProjectID       uuid.UUID
	Quantity        int64
	PricePerCredit  decimal.Decimal
	TotalAmount     decimal.Decimal
	Currency        string
	Status          string
	StripePaymentID string
	HoldExpiresAt   time.Time
}
