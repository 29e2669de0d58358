package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
	"github.com/amanarcarbon/carbonmart/internal/testutil"
)

func TestReviews(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withTx := func(t *testing.T, tx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.WithTx(tx, t, func(ttx pgx.Tx) {
			fn(ttx, NewStorage(ttx))
		})
	}

	t.Run("UpsertReview", func(t *testing.T) {
		withTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			owner := mustCreateUser(t, storage)
			reviewer := mustCreateUser(t, storage)
			project := mustCreateProject(t, storage, owner, 10)

			t.Run("create review", func(t *testing.T) {
				withTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					review, err := storage.Review().UpsertReview(t.Context(), models.ProjectReview{
						ProjectID: project.ID,
						UserID:    reviewer.ID,
						Rating:    4,
						Comment:   "Solid project, credits delivered quickly",
					})

					require.NoError(t, err)
					require.NotZero(t, review.ID)
					require.Equal(t, 4, review.Rating)
				})
			})

			t.Run("resubmit replaces rating and keeps the row", func(t *testing.T) {
				withTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					first, err := storage.Review().UpsertReview(t.Context(), models.ProjectReview{
						ProjectID: project.ID,
						UserID:    reviewer.ID,
						Rating:    2,
					})
					require.NoError(t, err)

					second, err := storage.Review().UpsertReview(t.Context(), models.ProjectReview{
						ProjectID: project.ID,
						UserID:    reviewer.ID,
						Rating:    5,
						Comment:   "Changed my mind after the credits retired cleanly",
					})
					require.NoError(t, err)

					require.Equal(t, first.ID, second.ID, "same (project, user) keeps one row")
					require.Equal(t, 5, second.Rating)

					reviews, err := storage.Review().ListByProject(t.Context(), project.ID, 10, 0)
					require.NoError(t, err)
					require.Len(t, reviews, 1)
				})
			})

			t.Run("one review per project and user pair", func(t *testing.T) {
				withTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					other := mustCreateUser(t, storage)

					_, err := storage.Review().UpsertReview(t.Context(), models.ProjectReview{
						ProjectID: project.ID, UserID: reviewer.ID, Rating: 4,
					})
					require.NoError(t, err)
					_, err = storage.Review().UpsertReview(t.Context(), models.ProjectReview{
						ProjectID: project.ID, UserID: other.ID, Rating: 2,
					})
					require.NoError(t, err)

					reviews, err := storage.Review().ListByProject(t.Context(), project.ID, 10, 0)
					require.NoError(t, err)
					require.Len(t, reviews, 2)
					require.NotEmpty(t, reviews[0].AuthorName)
				})
			})
		})
	})

	t.Run("Summarize", func(t *testing.T) {
		withTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			owner := mustCreateUser(t, storage)
			project := mustCreateProject(t, storage, owner, 10)

			t.Run("empty project", func(t *testing.T) {
				summary, err := storage.Review().Summarize(t.Context(), project.ID)

				require.NoError(t, err)
				require.Zero(t, summary.TotalReviews)
				require.Zero(t, summary.AverageRating)
			})

			t.Run("averages ratings", func(t *testing.T) {
				for _, rating := range []int{5, 3, 4} {
					reviewer := mustCreateUser(t, storage)
					_, err := storage.Review().UpsertReview(t.Context(), models.ProjectReview{
						ProjectID: project.ID, UserID: reviewer.ID, Rating: rating,
					})
					require.NoError(t, err)
				}

				summary, err := storage.Review().Summarize(t.Context(), project.ID)

				require.NoError(t, err)
				require.Equal(t, int64(3), summary.TotalReviews)
				require.InDelta(t, 4.0, summary.AverageRating, 0.001)
			})
		})
	})
}
