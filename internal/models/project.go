package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ProjectStatusPending     = "PENDING"
	ProjectStatusUnderReview = "UNDER_REVIEW"
	ProjectStatusVerified    = "VERIFIED"
	ProjectStatusRejected    = "REJECTED"
)

const (
	ProjectTypeReforestation    = "REFORESTATION"
	ProjectTypeRenewableEnergy  = "RENEWABLE_ENERGY"
	ProjectTypeEnergyEfficiency = "ENERGY_EFFICIENCY"
	ProjectTypeWasteManagement  = "WASTE_MANAGEMENT"
	ProjectTypeCarbonCapture    = "CARBON_CAPTURE"
	ProjectTypeBlueCarbon       = "BLUE_CARBON"
	ProjectTypeAgriculture      = "AGRICULTURE"
	ProjectTypeOther            = "OTHER"
)

type CarbonProject struct {
	ID               uuid.UUID
	CreatedAt        time.Time
	ModifiedAt       time.Time
	OwnerID          uuid.UUID
	Title            string
	Description      string
	Location         string
	Country          string
	ProjectType      string
	Standard         string
	Methodology      string
	EstimatedCredits int64
	PricePerCredit   decimal.Decimal
	Status           string
	StartDate        time.Time
	EndDate          *time.Time
	VerifiedAt       *time.Time
}
