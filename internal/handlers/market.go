package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/handlers/render"
	"github.com/amanarcarbon/carbonmart/internal/handlers/userctx"
	"github.com/amanarcarbon/carbonmart/internal/logger"
	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
)

type CreditResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProjectID    uuid.UUID       `json:"project_id"`
	SerialNumber string          `json:"serial_number"`
	Vintage      int             `json:"vintage"`
	Price        decimal.Decimal `json:"price"`
	Status       string          `json:"status"`
	RetiredAt    *time.Time      `json:"retired_at,omitempty"`
}

func toCreditResponse(c models.CarbonCredit) CreditResponse {
	return CreditResponse{
		ID:           c.ID,
		ProjectID:    c.ProjectID,
		SerialNumber: c.SerialNumber,
		Vintage:      c.Vintage,
		Price:        c.Price,
		Status:       c.Status,
		RetiredAt:    c.RetiredAt,
	}
}

type TransactionResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProjectID      uuid.UUID       `json:"project_id"`
	Quantity       int64           `json:"quantity"`
	PricePerCredit decimal.Decimal `json:"price_per_credit"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

func handleCheckout(marketService marketService, l logger.Logger) http.Handler {
	type request struct {
		ProjectID uuid.UUID `json:"project_id" validate:"required"`
		Quantity  int64     `json:"quantity" validate:"required,gt=0"`
		Currency  string    `json:"currency" validate:"omitempty,currency"`
	}
	type response struct {
		TransactionID uuid.UUID       `json:"transaction_id"`
		ClientSecret  string          `json:"client_secret"`
		TotalAmount   decimal.Decimal `json:"total_amount"`
		Currency      string          `json:"currency"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := marketService.Checkout(r.Context(), user, data.ProjectID, data.Quantity, data.Currency)
		switch {
		case err == nil:
			render.JSONWithStatus(w, response{
				TransactionID: result.TransactionID,
				ClientSecret:  result.ClientSecret,
				TotalAmount:   result.TotalAmount,
				Currency:      result.Currency,
			}, http.StatusCreated)
		case errors.Is(err, apperrors.ErrProjectNotFound):
			render.ServiceError(w, "Project not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrProjectNotListed):
			render.ServiceError(w, "Project is not listed for sale", http.StatusConflict)
		case errors.Is(err, apperrors.ErrInsufficientCredits):
			render.ServiceError(w, "Not enough credits available", http.StatusConflict)
		default:
			l.Error("Failed to checkout", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListTransactions(marketService marketService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		limit, offset := pagination(r)
		transactions, err := marketService.ListTransactions(r.Context(), user.ID, repository.ListTransactionsOpts{
			Status: r.URL.Query().Get("status"),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			l.Error("Failed to list transactions", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		responses := make([]TransactionResponse, 0, len(transactions))
		for _, t := range transactions {
			responses = append(responses, TransactionResponse{
				ID:             t.ID,
				ProjectID:      t.ProjectID,
				Quantity:       t.Quantity,
				PricePerCredit: t.PricePerCredit,
				TotalAmount:    t.TotalAmount,
				Currency:       t.Currency,
				Status:         t.Status,
				CreatedAt:      t.CreatedAt,
			})
		}
		render.JSON(w, responses)
	})
}

func handleListHoldings(marketService marketService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		credits, err := marketService.ListHoldings(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to list holdings", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		responses := make([]CreditResponse, 0, len(credits))
		for _, c := range credits {
			responses = append(responses, toCreditResponse(c))
		}
		render.JSON(w, responses)
	})
}

func handleListProjectCredits(marketService marketService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID, err := pathUUID(r, "id")
		if err != nil {
			render.ServiceError(w, "Invalid project id", http.StatusBadRequest)
			return
		}

		limit, offset := pagination(r)
		credits, err := marketService.ListProjectCredits(r.Context(), projectID, r.URL.Query().Get("status"), limit, offset)
		if err != nil {
			l.Error("Failed to list project credits", "error", err, "project_id", projectID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		responses := make([]CreditResponse, 0, len(credits))
		for _, c := range credits {
			responses = append(responses, toCreditResponse(c))
		}
		render.JSON(w, responses)
	})
}

func handleRetireCredit(marketService marketService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		creditID, err := pathUUID(r, "id")
		if err != nil {
			render.ServiceError(w, "Invalid credit id", http.StatusBadRequest)
			return
		}

		credit, err := marketService.Retire(r.Context(), creditID, user)
		switch {
		case err == nil:
			render.JSON(w, toCreditResponse(credit))
		case errors.Is(err, apperrors.ErrCreditNotFound):
			render.ServiceError(w, "Credit not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrCreditNotOwned):
			render.ServiceError(w, "Credit is owned by another user", http.StatusForbidden)
		case errors.Is(err, apperrors.ErrCreditNotSold):
			render.ServiceError(w, "Only purchased credits may be retired", http.StatusConflict)
		default:
			l.Error("Failed to retire credit", "error", err, "credit_id", creditID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
