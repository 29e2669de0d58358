package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectReview is one buyer's rating of a project.
// A user keeps a single review per project, resubmitting replaces it.
type ProjectReview struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	ModifiedAt time.Time
	ProjectID  uuid.UUID
	UserID     uuid.UUID
	AuthorName string
	Rating     int
	Comment    string
}

// ReviewSummary aggregates a project's reviews
type ReviewSummary struct {
	AverageRating float64
	TotalReviews  int64
}
