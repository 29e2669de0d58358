package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleIndividual = "INDIVIDUAL"
	RoleBusiness   = "BUSINESS"
	RoleAdmin      = "ADMIN"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Email          string
	Name           string
	Role           string
	HashedPassword string
}
