package postgres

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
)

var userSeq int

// Create user with unique email, most tests don't care about the exact value
func mustCreateUser(t *testing.T, storage repository.Storage) models.User {
	t.Helper()

	userSeq++
	email := fmt.Sprintf("user%d@example.com", userSeq)

	user, err := storage.User().CreateUser(t.Context(), email, "Test User", models.RoleIndividual, "hashedpassword")
	require.NoError(t, err, "user has to be created ok")
	return user
}

func mustCreateProject(t *testing.T, storage repository.Storage, owner models.User, estimatedCredits int64) models.CarbonProject {
	t.Helper()

	project, err := storage.Project().CreateProject(t.Context(), models.CarbonProject{
		OwnerID:          owner.ID,
		Title:            "Mangrove Restoration",
		Description:      "Replanting mangroves in coastal wetlands",
		Location:         "Sundarbans",
		Country:          "BD",
		ProjectType:      models.ProjectTypeBlueCarbon,
		Standard:         "VCS",
		Methodology:      "VM0033",
		EstimatedCredits: estimatedCredits,
		PricePerCredit:   decimal.NewFromFloat(12.50),
		StartDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err, "project has to be created ok")
	return project
}

// Verify the project and issue its credit inventory
func mustCreateVerifiedProject(t *testing.T, storage repository.Storage, owner models.User, estimatedCredits int64) models.CarbonProject {
	t.Helper()

	project := mustCreateProject(t, storage, owner, estimatedCredits)

	project, err := storage.Project().SetVerified(t.Context(), project.ID, time.Now())
	require.NoError(t, err, "project has to be verified ok")

	issued, err := storage.Credit().IssueCredits(t.Context(), project, project.StartDate.Year())
	require.NoError(t, err, "credits have to be issued ok")
	require.Equal(t, estimatedCredits, issued)

	return project
}

func mustCreateTransaction(t *testing.T, storage repository.Storage, user models.User, project models.CarbonProject, quantity int64, holdExpiresAt time.Time) models.Transaction {
	t.Helper()

	price := project.PricePerCredit
	transaction, err := storage.Transaction().CreateTransaction(t.Context(), models.Transaction{
		UserID:          user.ID,
		ProjectID:       project.ID,
		Quantity:        quantity,
		PricePerCredit:  price,
		TotalAmount:     price.Mul(decimal.NewFromInt(quantity)),
		Currency:        "usd",
		StripePaymentID: "pi_" + uuid.NewString(),
		HoldExpiresAt:   holdExpiresAt,
	})
	require.NoError(t, err, "transaction has to be created ok")
	return transaction
}
