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

type ProjectResponse struct {
	ID               uuid.UUID       `json:"id"`
	OwnerID          uuid.UUID       `json:"owner_id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Location         string          `json:"location"`
	Country          string          `json:"country"`
	ProjectType      string          `json:"project_type"`
	Standard         string          `json:"standard,omitempty"`
	Methodology      string          `json:"methodology,omitempty"`
	EstimatedCredits int64           `json:"estimated_credits"`
	PricePerCredit   decimal.Decimal `json:"price_per_credit"`
	Status           string          `json:"status"`
	StartDate        time.Time       `json:"start_date"`
	EndDate          *time.Time      `json:"end_date,omitempty"`
	VerifiedAt       *time.Time      `json:"verified_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func toProjectResponse(p models.CarbonProject) ProjectResponse {
	return ProjectResponse{
		ID:               p.ID,
		OwnerID:          p.OwnerID,
		Title:            p.Title,
		Description:      p.Description,
		Location:         p.Location,
		Country:          p.Country,
		ProjectType:      p.ProjectType,
		Standard:         p.Standard,
		Methodology:      p.Methodology,
		EstimatedCredits: p.EstimatedCredits,
		PricePerCredit:   p.PricePerCredit,
		Status:           p.Status,
		StartDate:        p.StartDate,
		EndDate:          p.EndDate,
		VerifiedAt:       p.VerifiedAt,
		CreatedAt:        p.CreatedAt,
	}
}

func handleSubmitProject(projectService projectService, l logger.Logger) http.Handler {
	type request struct {
		Title            string          `json:"title" validate:"required,min=3,max=200"`
		Description      string          `json:"description" validate:"required"`
		Location         string          `json:"location" validate:"required"`
		Country          string          `json:"country" validate:"required"`
		ProjectType      string          `json:"project_type" validate:"required,oneof=REFORESTATION RENEWABLE_ENERGY ENERGY_EFFICIENCY WASTE_MANAGEMENT CARBON_CAPTURE BLUE_CARBON AGRICULTURE OTHER"`
		Standard         string          `json:"standard"`
		Methodology      string          `json:"methodology"`
		EstimatedCredits int64           `json:"estimated_credits" validate:"required,gt=0"`
		PricePerCredit   decimal.Decimal `json:"price_per_credit" validate:"required"`
		StartDate        time.Time       `json:"start_date" validate:"required"`
		EndDate          *time.Time      `json:"end_date"`
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

		if data.PricePerCredit.LessThanOrEqual(decimal.Zero) {
			render.ServiceError(w, "Price per credit must be positive", http.StatusBadRequest)
			return
		}

		project, err := projectService.Submit(r.Context(), models.CarbonProject{
			OwnerID:          user.ID,
			Title:            data.Title,
			Description:      data.Description,
			Location:         data.Location,
			Country:          data.Country,
			ProjectType:      data.ProjectType,
			Standard:         data.Standard,
			Methodology:      data.Methodology,
			EstimatedCredits: data.EstimatedCredits,
			PricePerCredit:   data.PricePerCredit,
			StartDate:        data.StartDate,
			EndDate:          data.EndDate,
		})
		if err != nil {
			l.Error("Failed to submit project", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSONWithStatus(w, toProjectResponse(project), http.StatusCreated)
	})
}

func handleGetProject(projectService projectService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID, err := pathUUID(r, "id")
		if err != nil {
			render.ServiceError(w, "Invalid project id", http.StatusBadRequest)
			return
		}

		project, err := projectService.Get(r.Context(), projectID)
		switch {
		case err == nil:
			render.JSON(w, toProjectResponse(project))
		case errors.Is(err, apperrors.ErrProjectNotFound):
			render.ServiceError(w, "Project not found", http.StatusNotFound)
		default:
			l.Error("Failed to get project", "error", err, "project_id", projectID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListProjects(projectService projectService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, offset := pagination(r)
		q := r.URL.Query()

		opts := repository.ListProjectsOpts{
			Status:      q.Get("status"),
			ProjectType: q.Get("project_type"),
			Country:     q.Get("country"),
			Limit:       limit,
			Offset:      offset,
		}
		if raw := q.Get("min_price"); raw != "" {
			if price, err := decimal.NewFromString(raw); err == nil {
				opts.MinPrice = &price
			}
		}
		if raw := q.Get("max_price"); raw != "" {
			if price, err := decimal.NewFromString(raw); err == nil {
				opts.MaxPrice = &price
			}
		}

		projects, err := projectService.List(r.Context(), opts)
		if err != nil {
			l.Error("Failed to list projects", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		responses := make([]ProjectResponse, 0, len(projects))
		for _, p := range projects {
			responses = append(responses, toProjectResponse(p))
		}
		render.JSON(w, responses)
	})
}

func handleVerifyProject(projectService projectService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID, err := pathUUID(r, "id")
		if err != nil {
			render.ServiceError(w, "Invalid project id", http.StatusBadRequest)
			return
		}

		project, err := projectService.Verify(r.Context(), projectID)
		switch {
		case err == nil:
			render.JSON(w, toProjectResponse(project))
		case errors.Is(err, apperrors.ErrProjectNotFound):
			render.ServiceError(w, "Project not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrProjectNotPending):
			render.ServiceError(w, "Project is not awaiting verification", http.StatusConflict)
		default:
			l.Error("Failed to verify project", "error", err, "project_id", projectID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

type ReviewResponse struct {
	ID         uuid.UUID `json:"id"`
	ProjectID  uuid.UUID `json:"project_id"`
	UserID     uuid.UUID `json:"user_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toReviewResponse(rv models.ProjectReview) ReviewResponse {
	return ReviewResponse{
		ID:         rv.ID,
		ProjectID:  rv.ProjectID,
		UserID:     rv.UserID,
		AuthorName: rv.AuthorName,
		Rating:     rv.Rating,
		Comment:    rv.Comment,
		CreatedAt:  rv.CreatedAt,
	}
}

func handleReviewProject(projectService projectService, l logger.Logger) http.Handler {
	type request struct {
		Rating  int    `json:"rating" validate:"required,min=1,max=5"`
		Comment string `json:"comment" validate:"omitempty,min=10,max=500"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		projectID, err := pathUUID(r, "id")
		if err != nil {
			render.ServiceError(w, "Invalid project id", http.StatusBadRequest)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		review, err := projectService.Review(r.Context(), user, projectID, data.Rating, data.Comment)
		switch {
		case err == nil:
			render.JSON(w, toReviewResponse(review))
		case errors.Is(err, apperrors.ErrProjectNotFound):
			render.ServiceError(w, "Project not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrReviewNotAllowed):
			render.ServiceError(w, "You must purchase credits from this project before reviewing", http.StatusForbidden)
		default:
			l.Error("Failed to review project", "error", err, "project_id", projectID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListProjectReviews(projectService projectService, l logger.Logger) http.Handler {
	type response struct {
		Reviews       []ReviewResponse `json:"reviews"`
		AverageRating float64          `json:"average_rating"`
		TotalReviews  int64            `json:"total_reviews"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID, err := pathUUID(r, "id")
		if err != nil {
			render.ServiceError(w, "Invalid project id", http.StatusBadRequest)
			return
		}

		limit, offset := pagination(r)
		reviews, summary, err := projectService.ListReviews(r.Context(), projectID, limit, offset)
		if err != nil {
			l.Error("Failed to list project reviews", "error", err, "project_id", projectID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		responses := make([]ReviewResponse, 0, len(reviews))
		for _, rv := range reviews {
			responses = append(responses, toReviewResponse(rv))
		}
		render.JSON(w, response{
			Reviews:       responses,
			AverageRating: summary.AverageRating,
			TotalReviews:  summary.TotalReviews,
		})
	})
}

func handleRejectProject(projectService projectService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID, err := pathUUID(r, "id")
		if err != nil {
			render.ServiceError(w, "Invalid project id", http.StatusBadRequest)
			return
		}

		project, err := projectService.Reject(r.Context(), projectID)
		switch {
		case err == nil:
			render.JSON(w, toProjectResponse(project))
		case errors.Is(err, apperrors.ErrProjectNotFound):
			render.ServiceError(w, "Project not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrProjectNotPending):
			render.ServiceError(w, "Project is not awaiting verification", http.StatusConflict)
		default:
			l.Error("Failed to reject project", "error", err, "project_id", projectID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
