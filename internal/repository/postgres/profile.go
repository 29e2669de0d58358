package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/models"
)

type ProfileRepo struct {
	DB DBTX
}

const profileColumns = `id, user_id, created_at, modified_at, bio, location, total_offset`

const getProfileByUserID = `-- name: GetProfileByUserID
SELECT ` + profileColumns + ` FROM user_profiles
WHERE user_id = $1
`

func (r *ProfileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (models.UserProfile, error) {
	rows, _ := r.DB.Query(ctx, getProfileByUserID, userID)
	profile, err := pgx.CollectOneRow(rows, rowToProfile)

	switch {
	case err == nil:
		return profile, nil
	case errors.Is(err, pgx.ErrNoRows):
		return profile, apperrors.ErrProfileNotFound
	default:
		return profile, fmt.Errorf("db error: %w", err)
	}
}

const addOffset = `-- name: AddOffset
INSERT INTO user_profiles (id, user_id, total_offset)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE
SET total_offset = user_profiles.total_offset + EXCLUDED.total_offset, modified_at = now()
RETURNING ` + profileColumns

// AddOffset increments the denormalized counter, creating the profile row on
// first use. Call it in the same transaction as the impact ledger insert.
func (r *ProfileRepo) AddOffset(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (models.UserProfile, error) {
	rows, _ := r.DB.Query(ctx, addOffset, uuid.New(), userID, amount)
	profile, err := pgx.CollectOneRow(rows, rowToProfile)
	if err != nil {
		return profile, fmt.Errorf("db error: %w", err)
	}

	return profile, nil
}

const updateProfileDetails = `-- name: UpdateProfileDetails
INSERT INTO user_profiles (id, user_id, bio, location)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE
SET bio = EXCLUDED.bio, location = EXCLUDED.location, modified_at = now()
RETURNING ` + profileColumns

func (r *ProfileRepo) UpdateDetails(ctx context.Context, userID uuid.UUID, bio string, location string) (models.UserProfile, error) {
	rows, _ := r.DB.Query(ctx, updateProfileDetails, uuid.New(), userID, bio, location)
	profile, err := pgx.CollectOneRow(rows, rowToProfile)
	if err != nil {
		return profile, fmt.Errorf("db error: %w", err)
	}

	return profile, nil
}

const leaderboard = `-- name: Leaderboard
SELECT row_number() OVER (ORDER BY p.total_offset DESC, u.name), p.user_id, u.name, p.total_offset
FROM user_profiles p
JOIN users u ON u.id = p.user_id
WHERE p.total_offset > 0
ORDER BY p.total_offset DESC, u.name
LIMIT $1
`

func (r *ProfileRepo) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, _ := r.DB.Query(ctx, leaderboard, limit)
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.LeaderboardEntry, error) {
		var e models.LeaderboardEntry
		err := row.Scan(&e.Rank, &e.UserID, &e.Name, &e.TotalOffset)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}

func rowToProfile(row pgx.CollectableRow) (models.UserProfile, error) {
	var p models.UserProfile
	err := row.Scan(&p.ID, &p.UserID, &p.CreatedAt, &p.ModifiedAt, &p.Bio, &p.Location, &p.TotalOffset)
	return p, err
}
