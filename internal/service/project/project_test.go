package project

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
	"github.com/amanarcarbon/carbonmart/internal/repository/postgres"
	"github.com/amanarcarbon/carbonmart/internal/testutil"
)

var userSeq int

func mustCreateUser(t *testing.T, storage repository.Storage) models.User {
	t.Helper()

	userSeq++
	user, err := storage.User().CreateUser(t.Context(),
		fmt.Sprintf("reviewer%d@example.com", userSeq), "Test Reviewer", models.RoleIndividual, "hashedpassword")
	require.NoError(t, err)
	return user
}

func mustCreateProject(t *testing.T, service *ProjectService, storage repository.Storage) models.CarbonProject {
	t.Helper()

	owner := mustCreateUser(t, storage)
	project, err := service.Submit(t.Context(), models.CarbonProject{
		OwnerID:          owner.ID,
		Title:            "Peatland Restoration",
		Description:      "Rewetting drained peat bogs",
		Location:         "Scottish Highlands",
		Country:          "GB",
		ProjectType:      models.ProjectTypeOther,
		EstimatedCredits: 10,
		PricePerCredit:   decimal.NewFromInt(8),
		StartDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return project
}

// Record a finished purchase so the buyer passes the review gate
func mustCompletePurchase(t *testing.T, storage repository.Storage, buyer models.User, project models.CarbonProject) {
	t.Helper()

	transaction, err := storage.Transaction().CreateTransaction(t.Context(), models.Transaction{
		UserID:          buyer.ID,
		ProjectID:       project.ID,
		Quantity:        2,
		PricePerCredit:  project.PricePerCredit,
		TotalAmount:     project.PricePerCredit.Mul(decimal.NewFromInt(2)),
		Currency:        "usd",
		StripePaymentID: "pi_" + uuid.NewString(),
		HoldExpiresAt:   time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = storage.Transaction().SetStatus(t.Context(), transaction.ID, models.TransactionStatusCompleted)
	require.NoError(t, err)
}

func TestProjectService_Review(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withService := func(t *testing.T, fn func(service *ProjectService, storage repository.Storage)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			fn(NewService(storage), storage)
		})
	}

	t.Run("review after purchase", func(t *testing.T) {
		withService(t, func(service *ProjectService, storage repository.Storage) {
			project := mustCreateProject(t, service, storage)
			buyer := mustCreateUser(t, storage)
			mustCompletePurchase(t, storage, buyer, project)

			review, err := service.Review(t.Context(), buyer, project.ID, 5, "Credits retired without a hitch")

			require.NoError(t, err)
			require.Equal(t, 5, review.Rating)
			require.Equal(t, buyer.Name, review.AuthorName)

			reviews, summary, err := service.ListReviews(t.Context(), project.ID, 10, 0)
			require.NoError(t, err)
			require.Len(t, reviews, 1)
			require.Equal(t, int64(1), summary.TotalReviews)
			require.InDelta(t, 5.0, summary.AverageRating, 0.001)
		})
	})

	t.Run("review without purchase forbidden", func(t *testing.T) {
		withService(t, func(service *ProjectService, storage repository.Storage) {
			project := mustCreateProject(t, service, storage)
			stranger := mustCreateUser(t, storage)

			_, err := service.Review(t.Context(), stranger, project.ID, 1, "")

			require.ErrorIs(t, err, apperrors.ErrReviewNotAllowed)
		})
	})

	t.Run("pending purchase does not open the gate", func(t *testing.T) {
		withService(t, func(service *ProjectService, storage repository.Storage) {
			project := mustCreateProject(t, service, storage)
			buyer := mustCreateUser(t, storage)

			_, err := storage.Transaction().CreateTransaction(t.Context(), models.Transaction{
				UserID:          buyer.ID,
				ProjectID:       project.ID,
				Quantity:        1,
				PricePerCredit:  project.PricePerCredit,
				TotalAmount:     project.PricePerCredit,
				Currency:        "usd",
				StripePaymentID: "pi_" + uuid.NewString(),
				HoldExpiresAt:   time.Now().Add(time.Hour),
			})
			require.NoError(t, err)

			_, err = service.Review(t.Context(), buyer, project.ID, 4, "")

			require.ErrorIs(t, err, apperrors.ErrReviewNotAllowed)
		})
	})

	t.Run("resubmit replaces earlier review", func(t *testing.T) {
		withService(t, func(service *ProjectService, storage repository.Storage) {
			project := mustCreateProject(t, service, storage)
			buyer := mustCreateUser(t, storage)
			mustCompletePurchase(t, storage, buyer, project)

			first, err := service.Review(t.Context(), buyer, project.ID, 2, "")
			require.NoError(t, err)

			second, err := service.Review(t.Context(), buyer, project.ID, 4, "Better than it first looked")
			require.NoError(t, err)

			require.Equal(t, first.ID, second.ID)

			_, summary, err := service.ListReviews(t.Context(), project.ID, 10, 0)
			require.NoError(t, err)
			require.Equal(t, int64(1), summary.TotalReviews)
			require.InDelta(t, 4.0, summary.AverageRating, 0.001)
		})
	})

	t.Run("review unknown project", func(t *testing.T) {
		withService(t, func(service *ProjectService, storage repository.Storage) {
			buyer := mustCreateUser(t, storage)

			_, err := service.Review(t.Context(), buyer, uuid.New(), 3, "")

			require.ErrorIs(t, err, apperrors.ErrProjectNotFound)
		})
	})
}
