package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Each credit row represents a single tonne-equivalent unit.
// Status transitions: AVAILABLE -> RESERVED -> SOLD -> RETIRED,
// a reservation may fall back RESERVED -> AVAILABLE when the hold expires.
const (
	CreditStatusAvailable = "AVAILABLE"
	CreditStatusReserved  = "RESERVED"
	CreditStatusSold      = "SOLD"
	CreditStatusRetired   = "RETIRED"
	CreditStatusCancelled = "CANCELLED"
)

type CarbonCredit struct {
	ID            uuid.UUID
	CreatedAt     time.Time
	ModifiedAt    time.Time
	ProjectID     uuid.UUID
	SerialNumber  string
	Vintage       int
	Price         decimal.Decimal
	Status        string
	OwnerID       *uuid.UUID // nil until sold
	TransactionID *uuid.UUID // set while reserved or sold
	ReservedUntil *time.Time // hold deadline, set while reserved
	RetiredAt     *time.Time
}
