package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ImpactTypeCarbonOffset      = "CARBON_OFFSET"
	ImpactTypeEmissionReduction = "EMISSION_REDUCTION"
	ImpactTypeRenewableEnergy   = "RENEWABLE_ENERGY"
	ImpactTypeReforestation     = "REFORESTATION"
	ImpactTypeConservation      = "CONSERVATION"
	ImpactTypeEducation         = "EDUCATION"
	ImpactTypeOther             = "OTHER"
)

// UserImpact is an append-only ledger entry, never mutated after creation
type UserImpact struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	UserID      uuid.UUID
	ProjectID   *uuid.UUID
	ImpactType  string
	Value       decimal.Decimal
	Unit        string
	Description string
	Verified    bool
}

// ImpactSummary is an aggregate over a user's ledger entries
type ImpactSummary struct {
	TotalOffset decimal.Decimal
	Entries     int64
}
