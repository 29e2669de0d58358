package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
)

type PostRepo struct {
	DB DBTX
}

const createPost = `-- name: CreatePost
INSERT INTO community_posts (id, created_at, author_id, title, content, post_type, tags)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at
`

func (r *PostRepo) CreatePost(ctx context.Context, p models.CommunityPost) (models.CommunityPost, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	err := r.DB.QueryRow(ctx, createPost, p.ID, time.Now(), p.AuthorID, p.Title, p.Content, p.PostType, p.Tags).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return p, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

const listPosts = `-- name: ListPosts
SELECT p.id, p.created_at, p.author_id, u.name, p.title, p.content, p.post_type, p.tags
FROM community_posts p
JOIN users u ON u.id = p.author_id
WHERE ($1 = '' OR p.post_type = $1)
ORDER BY p.created_at DESC
LIMIT $2 OFFSET $3
`

func (r *PostRepo) ListPosts(ctx context.Context, opts repository.ListPostsOpts) ([]models.CommunityPost, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	rows, _ := r.DB.Query(ctx, listPosts, opts.PostType, opts.Limit, opts.Offset)
	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CommunityPost, error) {
		var p models.CommunityPost
		err := row.Scan(&p.ID, &p.CreatedAt, &p.AuthorID, &p.AuthorName, &p.Title, &p.Content, &p.PostType, &p.Tags)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return posts, nil
}
