package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/logger"
	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
)

const (
	defaultHoldTTL  = 30 * time.Minute
	defaultCurrency = "usd"
)

// PaymentIntent is the provider-side record of the charge
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// PaymentProvider abstracts the external payment processor
type PaymentProvider interface {
	// CreateIntent registers the charge with the processor and returns
	// the intent id and the client secret for the buyer's browser
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, transactionID uuid.UUID) (PaymentIntent, error)

	// CancelIntent voids a not yet captured intent
	CancelIntent(ctx context.Context, intentID string) error
}

type Config struct {
	// How long reserved credits are held for a pending checkout
	HoldTTL time.Duration
}

// MarketService drives the purchase lifecycle: checkout reservation,
// webhook settlement, hold expiry and credit retirement
type MarketService struct {
	holdTTL  time.Duration
	provider PaymentProvider
	storage  repository.Storage
	logger   logger.Logger
}

func NewService(cfg Config, provider PaymentProvider, storage repository.Storage, l logger.Logger) *MarketService {
	if cfg.HoldTTL == 0 {
		cfg.HoldTTL = defaultHoldTTL
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &MarketService{
		holdTTL:  cfg.HoldTTL,
		provider: provider,
		storage:  storage,
		logger:   l,
	}
}

type CheckoutResult struct {
	TransactionID uuid.UUID
	ClientSecret  string
	TotalAmount   decimal.Decimal
	Currency      string
}

// Checkout reserves credits for the buyer and opens the charge with the
// payment provider. The reservation and the pending transaction row commit
// together, so the provider intent can never point at unreserved inventory.
//
// The intent is created before the database transaction to keep the external
// call outside row locks. If the reservation then fails the intent is
// cancelled best-effort; an orphaned intent is harmless since it never gets
// confirmed.
func (s *MarketService) Checkout(ctx context.Context, buyer models.User, projectID uuid.UUID, quantity int64, currency string) (CheckoutResult, error) {
	var result CheckoutResult

	if quantity <= 0 {
		return result, fmt.Errorf("quantity must be positive: %d", quantity)
	}
	if currency == "" {
		currency = defaultCurrency
	}

	project, err := s.storage.Project().GetProject(ctx, projectID)
	if err != nil {
		return result, err
	}
	if project.Status != models.ProjectStatusVerified {
		return result, apperrors.ErrProjectNotListed
	}

	transactionID := uuid.New()
	total := project.PricePerCredit.Mul(decimal.NewFromInt(quantity))

	intent, err := s.provider.CreateIntent(ctx, total, currency, transactionID)
	if err != nil {
		return result, fmt.Errorf("payment provider error. Err: %w", err)
	}

	holdExpiresAt := time.Now().Add(s.holdTTL)

	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		_, err := storage.Transaction().CreateTransaction(ctx, models.Transaction{
			ID:              transactionID,
			UserID:          buyer.ID,
			ProjectID:       project.ID,
			Quantity:        quantity,
			PricePerCredit:  project.PricePerCredit,
			TotalAmount:     total,
			Currency:        currency,
			Status:          models.TransactionStatusPending,
			StripePaymentID: intent.ID,
			HoldExpiresAt:   holdExpiresAt,
		})
		if err != nil {
			return err
		}

		reserved, err := storage.Credit().Reserve(ctx, project.ID, transactionID, quantity, holdExpiresAt)
		if err != nil {
			return err
		}
		if reserved != quantity {
			return fmt.Errorf("reserved %d of %d credits. Err: %w", reserved, quantity, apperrors.ErrInsufficientCredits)
		}

		return nil
	})
	if err != nil {
		// Roll back the provider side, the reservation is already undone
		if cancelErr := s.provider.CancelIntent(ctx, intent.ID); cancelErr != nil {
			s.logger.Warn("Failed to cancel orphaned payment intent", "intent_id", intent.ID, "error", cancelErr)
		}
		return result, err
	}

	return CheckoutResult{
		TransactionID: transactionID,
		ClientSecret:  intent.ClientSecret,
		TotalAmount:   total,
		Currency:      currency,
	}, nil
}

func (s *MarketService) ListTransactions(ctx context.Context, userID uuid.UUID, opts repository.ListTransactionsOpts) ([]models.Transaction, error) {
	return s.storage.Transaction().ListByUser(ctx, userID, opts)
}

func (s *MarketService) ListHoldings(ctx context.Context, ownerID uuid.UUID) ([]models.CarbonCredit, error) {
	return s.storage.Credit().ListOwned(ctx, ownerID)
}

func (s *MarketService) ListProjectCredits(ctx context.Context, projectID uuid.UUID, status string, limit int, offset int) ([]models.CarbonCredit, error) {
	return s.storage.Credit().ListByProject(ctx, projectID, status, limit, offset)
}

// Retire permanently removes an owned credit from circulation
func (s *MarketService) Retire(ctx context.Context, creditID uuid.UUID, owner models.User) (models.CarbonCredit, error) {
	var retired models.CarbonCredit

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		credit, err := storage.Credit().Retire(ctx, creditID, owner.ID, time.Now())
		if err != nil {
			return err
		}

		_, err = storage.Notification().CreateNotification(ctx, models.Notification{
			UserID:  owner.ID,
			Kind:    models.NotificationCreditRetired,
			Title:   "Credit retired",
			Message: fmt.Sprintf("Credit %s is permanently retired", credit.SerialNumber),
		})
		if err != nil {
			return err
		}

		retired = credit
		return nil
	})

	return retired, err
}

// CancelExpired closes a pending transaction whose checkout hold lapsed:
// the transaction goes CANCELLED, its credits return to the pool and the
// provider intent gets voided. Safe to race with settlement: the PENDING
// guard means exactly one of them wins.
func (s *MarketService) CancelExpired(ctx context.Context, transaction models.Transaction) error {
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		_, err := storage.Transaction().SetStatus(ctx, transaction.ID, models.TransactionStatusCancelled)
		if err != nil {
			return err
		}

		_, err = storage.Credit().Release(ctx, transaction.ID)
		return err
	})

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrTransactionAlreadyFinal):
		// Settlement got there first, nothing to clean up
		return nil
	default:
		return err
	}

	if err := s.provider.CancelIntent(ctx, transaction.StripePaymentID); err != nil {
		// The intent stays open provider-side, it can't be confirmed into a
		// cancelled transaction so only log it
		s.logger.Warn("Failed to cancel payment intent for expired hold",
			"transaction_id", transaction.ID, "intent_id", transaction.StripePaymentID, "error", err)
	}

	return nil
}
