package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amanarcarbon/carbonmart/internal/models"
)

// Storage aggregates all repositories backed by the same database.
// InTx runs fn against a Storage bound to a single transaction: every
// repository call inside fn commits or rolls back together.
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Project() ProjectRepo
	Review() ReviewRepo
	Credit() CreditRepo
	Transaction() TransactionRepo
	Impact() ImpactRepo
	Profile() ProfileRepo
	Post() PostRepo
	Notification() NotificationRepo
	WebhookEvent() WebhookEventRepo

	InTx(ctx context.Context, fn func(Storage) error) error
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with email exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, email string, name string, role string, hashedPassword string) (models.User, error)

	// Get user by id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Save token in repository
	Save(ctx context.Context, token models.RefreshToken) error

	// Return the token if it exists, even expired or used
	Get(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Mark token as used
	// Must not overwrite 'usedAt' of an already used token:
	// the second call has to return apperrors.ErrRefreshTokenIsUsed
	MarkUsed(ctx context.Context, tokenString string) (usedAt time.Time, err error)
}

type ListProjectsOpts struct {
	Status      string
	ProjectType string
	Country     string
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	Limit       int
	Offset      int
}

type ProjectRepo interface {
	CreateProject(ctx context.Context, project models.CarbonProject) (models.CarbonProject, error)

	// If project not found must return apperrors.ErrProjectNotFound
	GetProject(ctx context.Context, projectID uuid.UUID) (models.CarbonProject, error)

	ListProjects(ctx context.Context, opts ListProjectsOpts) ([]models.CarbonProject, error)

	// Transition project to VERIFIED
	// Only PENDING or UNDER_REVIEW projects may be verified, otherwise
	// apperrors.ErrProjectNotPending
	SetVerified(ctx context.Context, projectID uuid.UUID, verifiedAt time.Time) (models.CarbonProject, error)

	// Transition project to REJECTED, same precondition as SetVerified
	SetRejected(ctx context.Context, projectID uuid.UUID, rejectedAt time.Time) (models.CarbonProject, error)
}

type ReviewRepo interface {
	// Create the user's review of the project or replace the existing one
	UpsertReview(ctx context.Context, review models.ProjectReview) (models.ProjectReview, error)

	ListByProject(ctx context.Context, projectID uuid.UUID, limit int, offset int) ([]models.ProjectReview, error)

	// Average rating and review count of the project
	Summarize(ctx context.Context, projectID uuid.UUID) (models.ReviewSummary, error)
}

type CreditRepo interface {
	// Issue the verified project's inventory: one AVAILABLE row per estimated credit
	IssueCredits(ctx context.Context, project models.CarbonProject, vintage int) (issued int64, err error)

	CountAvailable(ctx context.Context, projectID uuid.UUID) (int64, error)

	// Atomically move exactly 'quantity' AVAILABLE credits of the project to
	// RESERVED, tagging them with the transaction and the hold deadline.
	// Returns the number of rows actually reserved: the caller must treat
	// reserved != quantity as apperrors.ErrInsufficientCredits and roll back.
	Reserve(ctx context.Context, projectID uuid.UUID, transactionID uuid.UUID, quantity int64, until time.Time) (reserved int64, err error)

	// Move the transaction's RESERVED credits to SOLD with the given owner
	MarkSold(ctx context.Context, transactionID uuid.UUID, ownerID uuid.UUID) (sold int64, err error)

	// Return the transaction's RESERVED credits back to AVAILABLE
	Release(ctx context.Context, transactionID uuid.UUID) (released int64, err error)

	// Owner-only SOLD -> RETIRED transition
	// Returns apperrors.ErrCreditNotOwned / ErrCreditNotSold / ErrCreditNotFound
	Retire(ctx context.Context, creditID uuid.UUID, ownerID uuid.UUID, retiredAt time.Time) (models.CarbonCredit, error)

	ListByProject(ctx context.Context, projectID uuid.UUID, status string, limit int, offset int) ([]models.CarbonCredit, error)
	ListOwned(ctx context.Context, ownerID uuid.UUID) ([]models.CarbonCredit, error)
}

type ListTransactionsOpts struct {
	Status string
	Limit  int
	Offset int
}

type TransactionRepo interface {
	CreateTransaction(ctx context.Context, transaction models.Transaction) (models.Transaction, error)

	// If transaction not found must return apperrors.ErrTransactionNotFound
	GetByStripePaymentID(ctx context.Context, stripePaymentID string) (models.Transaction, error)

	// Transition PENDING -> status
	// A transaction already in a terminal state must return
	// apperrors.ErrTransactionAlreadyFinal and stay unchanged
	SetStatus(ctx context.Context, transactionID uuid.UUID, status string) (models.Transaction, error)

	ListByUser(ctx context.Context, userID uuid.UUID, opts ListTransactionsOpts) ([]models.Transaction, error)

	// PENDING transactions whose checkout hold deadline has passed
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Transaction, error)

	// Whether the user has a COMPLETED purchase from the project
	HasCompleted(ctx context.Context, userID uuid.UUID, projectID uuid.UUID) (bool, error)
}

type ImpactRepo interface {
	// Append a ledger entry, entries are never updated afterwards
	CreateImpact(ctx context.Context, impact models.UserImpact) (models.UserImpact, error)

	ListByUser(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.UserImpact, error)

	// Aggregate the user's CARBON_OFFSET entries
	Summarize(ctx context.Context, userID uuid.UUID) (models.ImpactSummary, error)
}

type ProfileRepo interface {
	// If profile not found must return apperrors.ErrProfileNotFound
	GetByUserID(ctx context.Context, userID uuid.UUID) (models.UserProfile, error)

	// Increment total_offset, creating the profile row if absent
	AddOffset(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.UserProfile, error)

	// Set editable fields, creating the profile row if absent
	UpdateDetails(ctx context.Context, userID uuid.UUID, bio string, location string) (models.UserProfile, error)

	// Top profiles ordered by total_offset
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

type ListPostsOpts struct {
	PostType string
	Limit    int
	Offset   int
}

type PostRepo interface {
	CreatePost(ctx context.Context, post models.CommunityPost) (models.CommunityPost, error)
	ListPosts(ctx context.Context, opts ListPostsOpts) ([]models.CommunityPost, error)
}

type NotificationRepo interface {
	CreateNotification(ctx context.Context, notification models.Notification) (models.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.Notification, error)

	// Mark own notification read
	// Must return apperrors.ErrNotificationNotFound for another user's id
	MarkRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) (readAt time.Time, err error)
}

type WebhookEventRepo interface {
	// Record the event id in the idempotency ledger
	// A duplicate (provider, event id) must return apperrors.ErrEventAlreadyProcessed
	Record(ctx context.Context, event models.WebhookEvent) error
}
