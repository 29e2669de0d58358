package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
	"github.com/amanarcarbon/carbonmart/internal/testutil"
)

func TestUsers(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	withTx := func(t *testing.T, tx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.WithTx(tx, t, func(ttx pgx.Tx) {
			fn(ttx, NewStorage(ttx))
		})
	}

	t.Run("CreateUser", func(t *testing.T) {
		withTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			t.Run("create ok", func(t *testing.T) {
				withTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					user, err := storage.User().CreateUser(t.Context(), "alice@example.com", "Alice", models.RoleIndividual, "hashedpassword")

					require.NoError(t, err, "user has to be created ok")
					require.NotZero(t, user.ID)
					require.Equal(t, "alice@example.com", user.Email)
					require.Equal(t, "Alice", user.Name)
					require.Equal(t, models.RoleIndividual, user.Role)
					require.WithinDuration(t, time.Now(), user.CreatedAt, time.Second)
				})
			})

			t.Run("create twice", func(t *testing.T) {
				withTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.User().CreateUser(t.Context(), "bob@example.com", "Bob", models.RoleBusiness, "hashedpassword")
					require.NoError(t, err)

					_, err = storage.User().CreateUser(t.Context(), "bob@example.com", "Another Bob", models.RoleIndividual, "hashedpassword")

					require.Error(t, err, "creating user with taken email must fail")
					require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists, "should return well known error")
				})
			})
		})
	})

	t.Run("GetUser", func(t *testing.T) {
		withTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			user := mustCreateUser(t, storage)

			byID, err := storage.User().GetUserByID(t.Context(), user.ID)
			require.NoError(t, err)
			require.Equal(t, user.Email, byID.Email)

			byEmail, err := storage.User().GetUserByEmail(t.Context(), user.Email)
			require.NoError(t, err)
			require.Equal(t, user.ID, byEmail.ID)

			_, err = storage.User().GetUserByEmail(t.Context(), "nobody@example.com")
			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})
}
