package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserProfile holds the denormalized offset counter.
// TotalOffset is updated in the same transaction as the impact ledger insert,
// so it always equals the sum of the user's CARBON_OFFSET entries.
type UserProfile struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	CreatedAt   time.Time
	ModifiedAt  time.Time
	Bio         string
	Location    string
	TotalOffset decimal.Decimal
}

// LeaderboardEntry is a ranked view over profiles
type LeaderboardEntry struct {
	Rank        int64
	UserID      uuid.UUID
	Name        string
	TotalOffset decimal.Decimal
	Badge       string
}
