package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/amanarcarbon/carbonmart/internal/handlers/render"
	"github.com/amanarcarbon/carbonmart/internal/handlers/userctx"
	"github.com/amanarcarbon/carbonmart/internal/logger"
	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
)

type PostResponse struct {
	ID         uuid.UUID `json:"id"`
	AuthorID   uuid.UUID `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	PostType   string    `json:"post_type"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toPostResponse(p models.CommunityPost) PostResponse {
	return PostResponse{
		ID:         p.ID,
		AuthorID:   p.AuthorID,
		AuthorName: p.AuthorName,
		Title:      p.Title,
		Content:    p.Content,
		PostType:   p.PostType,
		Tags:       p.Tags,
		CreatedAt:  p.CreatedAt,
	}
}

func handleCreatePost(communityService communityService, l logger.Logger) http.Handler {
	type request struct {
		Title    string   `json:"title" validate:"required,min=3,max=200"`
		Content  string   `json:"content" validate:"required,min=1"`
		PostType string   `json:"post_type" validate:"omitempty,oneof=GENERAL PROJECT_UPDATE SUCCESS_STORY QUESTION ANNOUNCEMENT EVENT"`
		Tags     []string `json:"tags" validate:"max=10,dive,min=1,max=50"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		post, err := communityService.CreatePost(r.Context(), user, data.Title, data.Content, data.PostType, data.Tags)
		if err != nil {
			l.Error("Failed to create post", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSONWithStatus(w, toPostResponse(post), http.StatusCreated)
	})
}

func handleListPosts(communityService communityService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, offset := pagination(r)
		posts, err := communityService.ListPosts(r.Context(), repository.ListPostsOpts{
			PostType: r.URL.Query().Get("post_type"),
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			l.Error("Failed to list posts", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		responses := make([]PostResponse, 0, len(posts))
		for _, p := range posts {
			responses = append(responses, toPostResponse(p))
		}
		render.JSON(w, responses)
	})
}
