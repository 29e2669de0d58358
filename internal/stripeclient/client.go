// Package stripeclient implements the payment provider over the Stripe API.
package stripeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/service/market"
)

// maxWebhookBody caps the payload read from Stripe. Real events are a few KB.
const maxWebhookBody = 1 << 16

type Client struct {
	webhookSecret string
}

// New configures the package-global Stripe key and returns a client
// that can create intents and verify webhook callbacks.
func New(secretKey, webhookSecret string) *Client {
	stripe.Key = secretKey
	return &Client{webhookSecret: webhookSecret}
}

// CreateIntent registers the charge with Stripe. Amounts are sent in the
// currency's minor unit, so a decimal total is shifted by two places.
func (c *Client) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, transactionID uuid.UUID) (market.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount.Shift(2).IntPart()),
		Currency: stripe.String(currency),
		Metadata: map[string]string{"transaction_id": transactionID.String()},
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return market.PaymentIntent{}, fmt.Errorf("stripe create intent: %w", err)
	}

	return market.PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// CancelIntent voids a not yet captured intent.
func (c *Client) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := paymentintent.Cancel(intentID, params); err != nil {
		return fmt.Errorf("stripe cancel intent: %w", err)
	}
	return nil
}

// ParseEvent verifies the webhook signature and reduces the Stripe event
// to the fields settlement acts on. A bad signature or an unreadable body
// returns apperrors.ErrInvalidSignature.
func (c *Client) ParseEvent(r *http.Request) (market.ProviderEvent, error) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return market.ProviderEvent{}, fmt.Errorf("read webhook body: %w", apperrors.ErrInvalidSignature)
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), c.webhookSecret)
	if err != nil {
		return market.ProviderEvent{}, fmt.Errorf("verify webhook signature: %w", apperrors.ErrInvalidSignature)
	}

	var intent stripe.PaymentIntent
	if err = json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return market.ProviderEvent{}, fmt.Errorf("unmarshal payment intent from event %q: %w", event.ID, err)
	}

	return market.ProviderEvent{
		ID:       event.ID,
		Type:     string(event.Type),
		IntentID: intent.ID,
	}, nil
}
