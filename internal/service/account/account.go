// Package account serves the user-facing read side of the marketplace:
// impact history, profiles, notifications and the offset leaderboard.
package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
)

const defaultLeaderboardSize = 10

// Badge thresholds in tonnes of offset carbon
var badgeThresholds = []struct {
	min   int64
	badge string
}{
	{1000, "Climate Champion"},
	{500, "Carbon Guardian"},
	{100, "Eco Protector"},
	{0, "Green Seedling"},
}

type AccountService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *AccountService {
	return &AccountService{storage: storage}
}

func (s *AccountService) ImpactHistory(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.UserImpact, error) {
	return s.storage.Impact().ListByUser(ctx, userID, limit, offset)
}

// RecordImpact appends a self-reported ledger entry. Offset entries bump the
// profile counter in the same transaction to keep it equal to the ledger sum.
func (s *AccountService) RecordImpact(ctx context.Context, impact models.UserImpact) (models.UserImpact, error) {
	impact.Verified = false

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		created, err := storage.Impact().CreateImpact(ctx, impact)
		if err != nil {
			return err
		}

		if created.ImpactType == models.ImpactTypeCarbonOffset {
			if _, err = storage.Profile().AddOffset(ctx, created.UserID, created.Value); err != nil {
				return err
			}
		}

		impact = created
		return nil
	})
	if err != nil {
		return models.UserImpact{}, err
	}

	return impact, nil
}

func (s *AccountService) ImpactSummary(ctx context.Context, userID uuid.UUID) (models.ImpactSummary, error) {
	return s.storage.Impact().Summarize(ctx, userID)
}

// GetProfile returns the stored profile or a zero-valued one for users
// that never purchased or edited anything.
func (s *AccountService) GetProfile(ctx context.Context, userID uuid.UUID) (models.UserProfile, error) {
	profile, err := s.storage.Profile().GetByUserID(ctx, userID)
	if errors.Is(err, apperrors.ErrProfileNotFound) {
		return models.UserProfile{UserID: userID}, nil
	}
	return profile, err
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, bio string, location string) (models.UserProfile, error) {
	return s.storage.Profile().UpdateDetails(ctx, userID, bio, location)
}

func (s *AccountService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}

	board, err := s.storage.Profile().Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	for i := range board {
		board[i].Badge = badgeFor(board[i].TotalOffset)
	}
	return board, nil
}

func badgeFor(totalOffset decimal.Decimal) string {
	for _, t := range badgeThresholds {
		if totalOffset.GreaterThanOrEqual(decimal.NewFromInt(t.min)) {
			return t.badge
		}
	}
	return ""
}

func (s *AccountService) Notifications(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.Notification, error) {
	return s.storage.Notification().ListByUser(ctx, userID, limit, offset)
}

func (s *AccountService) MarkNotificationRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) (time.Time, error) {
	return s.storage.Notification().MarkRead(ctx, notificationID, userID)
}
