package community

import (
	"context"

	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
)

type CommunityService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *CommunityService {
	return &CommunityService{storage: storage}
}

func (s *CommunityService) CreatePost(ctx context.Context, author models.User, title string, content string, postType string, tags []string) (models.CommunityPost, error) {
	if postType == "" {
		postType = models.PostTypeGeneral
	}

	post := models.CommunityPost{
		AuthorID: author.ID,
		Title:    title,
		Content:  content,
		PostType: postType,
		Tags:     tags,
	}

	created, err := s.storage.Post().CreatePost(ctx, post)
	if err != nil {
		return models.CommunityPost{}, err
	}

	created.AuthorName = author.Name
	return created, nil
}

func (s *CommunityService) ListPosts(ctx context.Context, opts repository.ListPostsOpts) ([]models.CommunityPost, error) {
	return s.storage.Post().ListPosts(ctx, opts)
}
