package project

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amanarcarbon/carbonmart/internal/apperrors"
	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
)

type ProjectService struct {
	// Repository to access long term data
	storage repository.Storage
}

func NewService(storage repository.Storage) *ProjectService {
	return &ProjectService{storage: storage}
}

// Submit registers a new project in PENDING state on behalf of its owner
func (s *ProjectService) Submit(ctx context.Context, project models.CarbonProject) (models.CarbonProject, error) {
	project.Status = models.ProjectStatusPending
	return s.storage.Project().CreateProject(ctx, project)
}

func (s *ProjectService) Get(ctx context.Context, projectID uuid.UUID) (models.CarbonProject, error) {
	return s.storage.Project().GetProject(ctx, projectID)
}

func (s *ProjectService) List(ctx context.Context, opts repository.ListProjectsOpts) ([]models.CarbonProject, error) {
	return s.storage.Project().ListProjects(ctx, opts)
}

// Verify transitions the project to VERIFIED and issues its credit inventory.
// Both writes share one transaction: a verified project always has its
// estimated credits available for sale.
func (s *ProjectService) Verify(ctx context.Context, projectID uuid.UUID) (models.CarbonProject, error) {
	var verified models.CarbonProject
	now := time.Now()

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		project, err := storage.Project().SetVerified(ctx, projectID, now)
		if err != nil {
			return err
		}

		issued, err := storage.Credit().IssueCredits(ctx, project, project.StartDate.Year())
		if err != nil {
			return fmt.Errorf("can't issue credits for project %s. Err: %w", project.ID, err)
		}
		if issued != project.EstimatedCredits {
			return fmt.Errorf("issued %d credits, want %d", issued, project.EstimatedCredits)
		}

		_, err = storage.Notification().CreateNotification(ctx, models.Notification{
			UserID:  project.OwnerID,
			Kind:    models.NotificationProjectVerified,
			Title:   "Project verified",
			Message: fmt.Sprintf("%q passed verification, %d credits issued", project.Title, issued),
		})
		if err != nil {
			return err
		}

		verified = project
		return nil
	})
	if err != nil {
		return verified, err
	}

	return verified, nil
}

// Review records the buyer's rating of the project. Only users with a
// completed purchase from the project may review it, and resubmitting
// replaces the earlier rating.
func (s *ProjectService) Review(ctx context.Context, reviewer models.User, projectID uuid.UUID, rating int, comment string) (models.ProjectReview, error) {
	project, err := s.storage.Project().GetProject(ctx, projectID)
	if err != nil {
		return models.ProjectReview{}, err
	}

	purchased, err := s.storage.Transaction().HasCompleted(ctx, reviewer.ID, project.ID)
	if err != nil {
		return models.ProjectReview{}, err
	}
	if !purchased {
		return models.ProjectReview{}, apperrors.ErrReviewNotAllowed
	}

	review, err := s.storage.Review().UpsertReview(ctx, models.ProjectReview{
		ProjectID: project.ID,
		UserID:    reviewer.ID,
		Rating:    rating,
		Comment:   comment,
	})
	if err != nil {
		return models.ProjectReview{}, err
	}

	review.AuthorName = reviewer.Name
	return review, nil
}

func (s *ProjectService) ListReviews(ctx context.Context, projectID uuid.UUID, limit int, offset int) ([]models.ProjectReview, models.ReviewSummary, error) {
	reviews, err := s.storage.Review().ListByProject(ctx, projectID, limit, offset)
	if err != nil {
		return nil, models.ReviewSummary{}, err
	}

	summary, err := s.storage.Review().Summarize(ctx, projectID)
	if err != nil {
		return nil, models.ReviewSummary{}, err
	}

	return reviews, summary, nil
}

// Reject closes verification without issuing credits
func (s *ProjectService) Reject(ctx context.Context, projectID uuid.UUID) (models.CarbonProject, error) {
	var rejected models.CarbonProject

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		project, err := storage.Project().SetRejected(ctx, projectID, time.Now())
		if err != nil {
			return err
		}

		_, err = storage.Notification().CreateNotification(ctx, models.Notification{
			UserID:  project.OwnerID,
			Kind:    models.NotificationProjectRejected,
			Title:   "Project rejected",
			Message: fmt.Sprintf("%q did not pass verification", project.Title),
		})
		if err != nil {
			return err
		}

		rejected = project
		return nil
	})
	if err != nil {
		return rejected, err
	}

	return rejected, nil
}
