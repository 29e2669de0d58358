package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
	"github.com/amanarcarbon/carbonmart/internal/testutil"
)

func TestProjects(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withTx := func(t *testing.T, tx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.WithTx(tx, t, func(ttx pgx.Tx) {
			fn(ttx, NewStorage(ttx))
		})
	}

	t.Run("CreateProject", func(t *testing.T) {
		withTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			owner := mustCreateUser(t, storage)

			project := mustCreateProject(t, storage, owner, 100)

			require.NotZero(t, project.ID)
			require.Equal(t, models.ProjectStatusPending, project.Status, "new projects await verification")
			require.Equal(t, owner.ID, project.OwnerID)
			require.WithinDuration(t, time.Now(), project.CreatedAt, time.Second)
			require.Nil(t, project.VerifiedAt)
		})
	})

	t.Run("GetProject", func(t *testing.T) {
		withTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			owner := mustCreateUser(t, storage)
			project := mustCreateProject(t, storage, owner, 100)

			got, err := storage.Project().GetProject(t.Context(), project.ID)
			require.NoError(t, err)
			require.Equal(t, project.ID, got.ID)
			require.True(t, project.PricePerCredit.Equal(got.PricePerCredit))

			_, err = storage.Project().GetProject(t.Context(), owner.ID)
			require.ErrorIs(t, err, apperrors.ErrProjectNotFound)
		})
	})

	t.Run("SetVerified", func(t *testing.T) {
		withTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			owner := mustCreateUser(t, storage)

			t.Run("verify pending", func(t *testing.T) {
				withTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					project := mustCreateProject(t, storage, owner, 100)

					verified, err := storage.Project().SetVerified(t.Context(), project.ID, time.Now())

					require.NoError(t, err)
					require.Equal(t, models.ProjectStatusVerified, verified.Status)
					require.NotNil(t, verified.VerifiedAt)
				})
			})

			t.Run("verify twice", func(t *testing.T) {
				withTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					project := mustCreateProject(t, storage, owner, 100)

					_, err := storage.Project().SetVerified(t.Context(), project.ID, time.Now())
					require.NoError(t, err)

					_, err = storage.Project().SetVerified(t.Context(), project.ID, time.Now())
					require.ErrorIs(t, err, apperrors.ErrProjectNotPending)
				})
			})

			t.Run("verify unknown", func(t *testing.T) {
				withTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Project().SetVerified(t.Context(), owner.ID, time.Now())
					require.ErrorIs(t, err, apperrors.ErrProjectNotFound)
				})
			})
		})
	})

	t.Run("SetRejected", func(t *testing.T) {
		withTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			owner := mustCreateUser(t, storage)

			t.Run("reject pending", func(t *testing.T) {
				withTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					project := mustCreateProject(t, storage, owner, 100)

					rejected, err := storage.Project().SetRejected(t.Context(), project.ID, time.Now())

					require.NoError(t, err)
					require.Equal(t, models.ProjectStatusRejected, rejected.Status)
					require.Nil(t, rejected.VerifiedAt)
				})
			})

			t.Run("reject verified project fails", func(t *testing.T) {
				withTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					project := mustCreateProject(t, storage, owner, 100)

					_, err := storage.Project().SetVerified(t.Context(), project.ID, time.Now())
					require.NoError(t, err)

					_, err = storage.Project().SetRejected(t.Context(), project.ID, time.Now())
					require.ErrorIs(t, err, apperrors.ErrProjectNotPending)
				})
			})

			t.Run("reject unknown", func(t *testing.T) {
				withTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Project().SetRejected(t.Context(), owner.ID, time.Now())
					require.ErrorIs(t, err, apperrors.ErrProjectNotFound)
				})
			})
		})
	})

	t.Run("ListProjects", func(t *testing.T) {
		withTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			owner := mustCreateUser(t, storage)

			verified := mustCreateProject(t, storage, owner, 100)
			_, err := storage.Project().SetVerified(t.Context(), verified.ID, time.Now())
			require.NoError(t, err)
			_ = mustCreateProject(t, storage, owner, 50) // stays pending

			t.Run("filter by status", func(t *testing.T) {
				projects, err := storage.Project().ListProjects(t.Context(), repository.ListProjectsOpts{
					Status: models.ProjectStatusVerified,
					Limit:  10,
				})

				require.NoError(t, err)
				require.Len(t, projects, 1)
				require.Equal(t, verified.ID, projects[0].ID)
			})

			t.Run("no filters lists everything", func(t *testing.T) {
				projects, err := storage.Project().ListProjects(t.Context(), repository.ListProjectsOpts{Limit: 10})

				require.NoError(t, err)
				require.Len(t, projects, 2)
			})

			t.Run("filter by price", func(t *testing.T) {
				maxPrice := decimal.NewFromInt(5)
				projects, err := storage.Project().ListProjects(t.Context(), repository.ListProjectsOpts{
					MaxPrice: &maxPrice,
					Limit:    10,
				})

				require.NoError(t, err)
				require.Empty(t, projects, "both fixtures cost more than the cap")
			})
		})
	})
}
