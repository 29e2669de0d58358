package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationPaymentCompleted = "PAYMENT_COMPLETED"
	NotificationProjectVerified  = "PROJECT_VERIFIED"
	NotificationProjectRejected  = "PROJECT_REJECTED"
	NotificationCreditRetired    = "CREDIT_RETIRED"
)

type Notification struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UserID    uuid.UUID
	Kind      string
	Title     string
	Message   string
	ReadAt    *time.Time // nil while unread
}
