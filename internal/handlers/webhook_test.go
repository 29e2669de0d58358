package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/logger"
	"github.com/amanarcarbon/carbonmart/internal/service/market"
)

type parserFunc func(r *http.Request) (market.ProviderEvent, error)

func (f parserFunc) ParseEvent(r *http.Request) (market.ProviderEvent, error) {
	return f(r)
}

type settlerFunc func(ctx context.Context, event market.ProviderEvent) error

func (f settlerFunc) Settle(ctx context.Context, event market.ProviderEvent) error {
	return f(ctx, event)
}

func Test_StripeWebhookHandler(t *testing.T) {
	okParser := parserFunc(func(r *http.Request) (market.ProviderEvent, error) {
		return market.ProviderEvent{ID: "evt_1", Type: market.EventPaymentSucceeded, IntentID: "pi_1"}, nil
	})

	post := func(t *testing.T, h http.Handler) (*http.Response, string) {
		t.Helper()

		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)

		resp, err := http.Post(srv.URL, "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		_ = resp.Body.Close()

		return resp, string(body)
	}

	t.Run("settled ok", func(t *testing.T) {
		var got market.ProviderEvent
		settle := settlerFunc(func(ctx context.Context, event market.ProviderEvent) error {
			got = event
			return nil
		})

		resp, body := post(t, handleStripeWebhook(okParser, settle, logger.NewNoOpLogger()))

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
		require.JSONEq(t, `{"received": true}`, body)
		require.Equal(t, "evt_1", got.ID)
	})

	t.Run("bad signature", func(t *testing.T) {
		parser := parserFunc(func(r *http.Request) (market.ProviderEvent, error) {
			return market.ProviderEvent{}, apperrors.ErrInvalidSignature
		})
		settle := settlerFunc(func(ctx context.Context, event market.ProviderEvent) error {
			t.Fatal("unverified events must never reach settlement")
			return nil
		})

		resp, body := post(t, handleStripeWebhook(parser, settle, logger.NewNoOpLogger()))

		require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
	})

	t.Run("settlement error returns 500 for redelivery", func(t *testing.T) {
		settle := settlerFunc(func(ctx context.Context, event market.ProviderEvent) error {
			return errors.New("db connection lost")
		})

		resp, body := post(t, handleStripeWebhook(okParser, settle, logger.NewNoOpLogger()))

		require.Equalf(t, http.StatusInternalServerError, resp.StatusCode, "not expected code. Body: %s", body)
	})

	t.Run("duplicate event is acknowledged", func(t *testing.T) {
		settle := settlerFunc(func(ctx context.Context, event market.ProviderEvent) error {
			return apperrors.ErrEventAlreadyProcessed
		})

		resp, body := post(t, handleStripeWebhook(okParser, settle, logger.NewNoOpLogger()))

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
		require.JSONEq(t, `{"received": true}`, body)
	})
}
