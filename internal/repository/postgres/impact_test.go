package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
	"github.com/amanarcarbon/carbonmart/internal/testutil"
)

func TestImpacts(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withTx := func(t *testing.T, tx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.WithTx(tx, t, func(ttx pgx.Tx) {
			fn(ttx, NewStorage(ttx))
		})
	}

	t.Run("CreateImpact", func(t *testing.T) {
		withTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			user := mustCreateUser(t, storage)

			impact, err := storage.Impact().CreateImpact(t.Context(), models.UserImpact{
				UserID:      user.ID,
				ImpactType:  models.ImpactTypeCarbonOffset,
				Value:       decimal.NewFromInt(3),
				Unit:        "credits",
				Description: "Purchased 3 credits",
				Verified:    true,
			})

			require.NoError(t, err)
			require.NotZero(t, impact.ID)
			require.Equal(t, user.ID, impact.UserID)
			require.True(t, impact.Verified)
		})
	})

	t.Run("Summarize", func(t *testing.T) {
		withTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			user := mustCreateUser(t, storage)

			entries := []models.UserImpact{
				{UserID: user.ID, ImpactType: models.ImpactTypeCarbonOffset, Value: decimal.NewFromInt(3), Unit: "credits"},
				{UserID: user.ID, ImpactType: models.ImpactTypeCarbonOffset, Value: decimal.NewFromInt(2), Unit: "credits"},
				{UserID: user.ID, ImpactType: models.ImpactTypeEducation, Value: decimal.NewFromInt(10), Unit: "hours"},
			}
			for _, e := range entries {
				_, err := storage.Impact().CreateImpact(t.Context(), e)
				require.NoError(t, err)
			}

			summary, err := storage.Impact().Summarize(t.Context(), user.ID)

			require.NoError(t, err)
			require.True(t, decimal.NewFromInt(5).Equal(summary.TotalOffset), "only offset entries count towards the total")
			require.Equal(t, int64(3), summary.Entries)
		})
	})

	t.Run("Summarize empty", func(t *testing.T) {
		withTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			user := mustCreateUser(t, storage)

			summary, err := storage.Impact().Summarize(t.Context(), user.ID)

			require.NoError(t, err)
			require.True(t, summary.TotalOffset.IsZero())
			require.Zero(t, summary.Entries)
		})
	})
}
