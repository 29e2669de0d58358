package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
)

// Provider event types the settlement cares about
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentCanceled  = "payment_intent.canceled"
)

// ProviderEvent is a verified webhook callback, reduced to what settlement needs
type ProviderEvent struct {
	ID       string
	Type     string
	IntentID string
}

// Settle applies one provider event. Every side effect shares a single
// database transaction that starts by recording the event id, so a
// redelivered event is a no-op and a half-applied event never commits.
//
// Returned errors mean the event was not applied and the provider should
// redeliver it. apperrors.ErrEventAlreadyProcessed is not returned: a
// duplicate is acknowledged like a success.
func (s *MarketService) Settle(ctx context.Context, event ProviderEvent) error {
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		err := storage.WebhookEvent().Record(ctx, models.WebhookEvent{
			Provider:  models.WebhookProviderStripe,
			EventID:   event.ID,
			EventType: event.Type,
		})
		if err != nil {
			return err
		}

		switch event.Type {
		case EventPaymentSucceeded:
			return s.settleSucceeded(ctx, storage, event)
		case EventPaymentFailed:
			return s.settleAborted(ctx, storage, event, models.TransactionStatusFailed)
		case EventPaymentCanceled:
			return s.settleAborted(ctx, storage, event, models.TransactionStatusCancelled)
		default:
			s.logger.Info("Ignoring unhandled webhook event type", "event_type", event.Type, "event_id", event.ID)
			return nil
		}
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrEventAlreadyProcessed):
		s.logger.Info("Skipping duplicate webhook event", "event_id", event.ID)
		return nil
	default:
		return err
	}
}

// settleSucceeded finalizes the purchase: transaction COMPLETED, reserved
// credits SOLD to the buyer, impact ledger entry appended and the profile
// counter incremented in the same transaction.
func (s *MarketService) settleSucceeded(ctx context.Context, storage repository.Storage, event ProviderEvent) error {
	transaction, err := storage.Transaction().GetByStripePaymentID(ctx, event.IntentID)
	if errors.Is(err, apperrors.ErrTransactionNotFound) {
		// Not our intent, fine to acknowledge
		s.logger.Warn("No transaction for payment intent", "intent_id", event.IntentID, "event_id", event.ID)
		return nil
	}
	if err != nil {
		return err
	}

	transaction, err = storage.Transaction().SetStatus(ctx, transaction.ID, models.TransactionStatusCompleted)
	if errors.Is(err, apperrors.ErrTransactionAlreadyFinal) {
		// The hold sweeper cancelled this checkout before the payment
		// confirmation arrived. The money is captured provider-side, which
		// needs an out-of-band refund, so shout about it but acknowledge:
		// redelivery can't fix a released reservation.
		s.logger.Error("Payment succeeded for a finalized transaction, manual refund required",
			"transaction_id", transaction.ID, "intent_id", event.IntentID)
		return nil
	}
	if err != nil {
		return err
	}

	sold, err := storage.Credit().MarkSold(ctx, transaction.ID, transaction.UserID)
	if err != nil {
		return err
	}
	if sold != transaction.Quantity {
		return fmt.Errorf("sold %d credits for transaction %s, want %d", sold, transaction.ID, transaction.Quantity)
	}

	project, err := storage.Project().GetProject(ctx, transaction.ProjectID)
	if err != nil {
		return err
	}

	offset := decimal.NewFromInt(transaction.Quantity)

	_, err = storage.Impact().CreateImpact(ctx, models.UserImpact{
		UserID:      transaction.UserID,
		ProjectID:   &transaction.ProjectID,
		ImpactType:  models.ImpactTypeCarbonOffset,
		Value:       offset,
		Unit:        "credits",
		Description: fmt.Sprintf("Carbon offset purchase from %s", project.Title),
		Verified:    true,
	})
	if err != nil {
		return err
	}

	_, err = storage.Profile().AddOffset(ctx, transaction.UserID, offset)
	if err != nil {
		return err
	}

	_, err = storage.Notification().CreateNotification(ctx, models.Notification{
		UserID:  transaction.UserID,
		Kind:    models.NotificationPaymentCompleted,
		Title:   "Purchase completed",
		Message: fmt.Sprintf("You offset %d tonnes with %s", transaction.Quantity, project.Title),
	})
	if err != nil {
		return err
	}

	s.logger.Info("Settled purchase",
		"transaction_id", transaction.ID, "user_id", transaction.UserID, "quantity", transaction.Quantity)

	return nil
}

// settleAborted closes a failed or canceled payment and returns the
// reservation to the available pool
func (s *MarketService) settleAborted(ctx context.Context, storage repository.Storage, event ProviderEvent, status string) error {
	transaction, err := storage.Transaction().GetByStripePaymentID(ctx, event.IntentID)
	if errors.Is(err, apperrors.ErrTransactionNotFound) {
		s.logger.Warn("No transaction for payment intent", "intent_id", event.IntentID, "event_id", event.ID)
		return nil
	}
	if err != nil {
		return err
	}

	_, err = storage.Transaction().SetStatus(ctx, transaction.ID, status)
	if errors.Is(err, apperrors.ErrTransactionAlreadyFinal) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = storage.Credit().Release(ctx, transaction.ID)
	return err
}
