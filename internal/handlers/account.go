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
)

func handleImpactHistory(accountService accountService, l logger.Logger) http.Handler {
	type entry struct {
		ID          uuid.UUID       `json:"id"`
		ProjectID   *uuid.UUID      `json:"project_id,omitempty"`
		ImpactType  string          `json:"impact_type"`
		Value       decimal.Decimal `json:"value"`
		Unit        string          `json:"unit"`
		Description string          `json:"description,omitempty"`
		Verified    bool            `json:"verified"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		limit, offset := pagination(r)
		impacts, err := accountService.ImpactHistory(r.Context(), user.ID, limit, offset)
		if err != nil {
			l.Error("Failed to list impact history", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		entries := make([]entry, 0, len(impacts))
		for _, im := range impacts {
			entries = append(entries, entry{
				ID:          im.ID,
				ProjectID:   im.ProjectID,
				ImpactType:  im.ImpactType,
				Value:       im.Value,
				Unit:        im.Unit,
				Description: im.Description,
				Verified:    im.Verified,
				CreatedAt:   im.CreatedAt,
			})
		}
		render.JSON(w, entries)
	})
}

func handleRecordImpact(accountService accountService, l logger.Logger) http.Handler {
	type request struct {
		ProjectID   *uuid.UUID      `json:"project_id"`
		ImpactType  string          `json:"impact_type" validate:"required,oneof=CARBON_OFFSET EMISSION_REDUCTION RENEWABLE_ENERGY REFORESTATION CONSERVATION EDUCATION OTHER"`
		Value       decimal.Decimal `json:"value" validate:"required"`
		Unit        string          `json:"unit" validate:"required,max=50"`
		Description string          `json:"description" validate:"max=1000"`
	}
	type response struct {
		ID        uuid.UUID `json:"id"`
		CreatedAt time.Time `json:"created_at"`
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

		if data.Value.LessThanOrEqual(decimal.Zero) {
			render.ServiceError(w, "Value must be positive", http.StatusBadRequest)
			return
		}

		impact, err := accountService.RecordImpact(r.Context(), models.UserImpact{
			UserID:      user.ID,
			ProjectID:   data.ProjectID,
			ImpactType:  data.ImpactType,
			Value:       data.Value,
			Unit:        data.Unit,
			Description: data.Description,
		})
		if err != nil {
			l.Error("Failed to record impact", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSONWithStatus(w, response{ID: impact.ID, CreatedAt: impact.CreatedAt}, http.StatusCreated)
	})
}

func handleImpactSummary(accountService accountService, l logger.Logger) http.Handler {
	type response struct {
		TotalOffset decimal.Decimal `json:"total_offset"`
		Entries     int64           `json:"entries"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		summary, err := accountService.ImpactSummary(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to summarize impact", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{TotalOffset: summary.TotalOffset, Entries: summary.Entries})
	})
}

type ProfileResponse struct {
	UserID      uuid.UUID       `json:"user_id"`
	Bio         string          `json:"bio,omitempty"`
	Location    string          `json:"location,omitempty"`
	TotalOffset decimal.Decimal `json:"total_offset"`
}

func handleGetProfile(accountService accountService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		profile, err := accountService.GetProfile(r.Context(), user.ID)
		if err != nil {
			l.Error("Failed to get profile", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, ProfileResponse{
			UserID:      profile.UserID,
			Bio:         profile.Bio,
			Location:    profile.Location,
			TotalOffset: profile.TotalOffset,
		})
	})
}

func handleUpdateProfile(accountService accountService, l logger.Logger) http.Handler {
	type request struct {
		Bio      string `json:"bio" validate:"max=1000"`
		Location string `json:"location" validate:"max=200"`
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

		profile, err := accountService.UpdateProfile(r.Context(), user.ID, data.Bio, data.Location)
		if err != nil {
			l.Error("Failed to update profile", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, ProfileResponse{
			UserID:      profile.UserID,
			Bio:         profile.Bio,
			Location:    profile.Location,
			TotalOffset: profile.TotalOffset,
		})
	})
}

func handleLeaderboard(accountService accountService, l logger.Logger) http.Handler {
	type entry struct {
		Rank        int64           `json:"rank"`
		UserID      uuid.UUID       `json:"user_id"`
		Name        string          `json:"name"`
		TotalOffset decimal.Decimal `json:"total_offset"`
		Badge       string          `json:"badge,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := pagination(r)
		board, err := accountService.Leaderboard(r.Context(), limit)
		if err != nil {
			l.Error("Failed to build leaderboard", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		entries := make([]entry, 0, len(board))
		for _, e := range board {
			entries = append(entries, entry{
				Rank:        e.Rank,
				UserID:      e.UserID,
				Name:        e.Name,
				TotalOffset: e.TotalOffset,
				Badge:       e.Badge,
			})
		}
		render.JSON(w, entries)
	})
}

func handleListNotifications(accountService accountService, l logger.Logger) http.Handler {
	type notification struct {
		ID        uuid.UUID  `json:"id"`
		Kind      string     `json:"kind"`
		Title     string     `json:"title"`
		Message   string     `json:"message"`
		ReadAt    *time.Time `json:"read_at,omitempty"`
		CreatedAt time.Time  `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		limit, offset := pagination(r)
		notifications, err := accountService.Notifications(r.Context(), user.ID, limit, offset)
		if err != nil {
			l.Error("Failed to list notifications", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		responses := make([]notification, 0, len(notifications))
		for _, n := range notifications {
			responses = append(responses, notification{
				ID:        n.ID,
				Kind:      n.Kind,
				Title:     n.Title,
				Message:   n.Message,
				ReadAt:    n.ReadAt,
				CreatedAt: n.CreatedAt,
			})
		}
		render.JSON(w, responses)
	})
}

func handleMarkNotificationRead(accountService accountService, l logger.Logger) http.Handler {
	type response struct {
		ID     uuid.UUID `json:"id"`
		ReadAt time.Time `json:"read_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		notificationID, err := pathUUID(r, "id")
		if err != nil {
			render.ServiceError(w, "Invalid notification id", http.StatusBadRequest)
			return
		}

		readAt, err := accountService.MarkNotificationRead(r.Context(), notificationID, user.ID)
		switch {
		case err == nil:
			render.JSON(w, response{ID: notificationID, ReadAt: readAt})
		case errors.Is(err, apperrors.ErrNotificationNotFound):
			render.ServiceError(w, "Notification not found", http.StatusNotFound)
		default:
			l.Error("Failed to mark notification read", "error", err, "notification_id", notificationID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
