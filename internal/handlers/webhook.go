package handlers

import (
	"errors"
	"net/http"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/handlers/render"
	"github.com/amanarcarbon/carbonmart/internal/logger"
)

// handleStripeWebhook verifies and settles payment callbacks.
// Settlement failures return 500 so the provider redelivers the event,
// duplicates are acknowledged without acting twice.
func handleStripeWebhook(parser eventParser, settler settler, l logger.Logger) http.Handler {
	type response struct {
		Received bool `json:"received"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event, err := parser.ParseEvent(r)
		if err != nil {
			l.Warn("Rejected webhook", "error", err)
			render.ServiceError(w, "Invalid webhook", http.StatusBadRequest)
			return
		}

		err = settler.Settle(r.Context(), event)
		if err != nil && !errors.Is(err, apperrors.ErrEventAlreadyProcessed) {
			l.Error("Failed to settle webhook event", "error", err, "event_id", event.ID, "event_type", event.Type)
			render.ServiceError(w, "Settlement failed", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Received: true})
	})
}
