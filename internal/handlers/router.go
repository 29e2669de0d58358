package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/amanarcarbon/carbonmart/internal/handlers/middleware"
	"github.com/amanarcarbon/carbonmart/internal/logger"
	"github.com/amanarcarbon/carbonmart/internal/models"
	"github.com/amanarcarbon/carbonmart/internal/repository"
	"github.com/amanarcarbon/carbonmart/internal/service/market"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	projectService projectService,
	marketService marketService,
	accountService accountService,
	communityService communityService,
	parser eventParser,
	settler settler,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}
	withAdmin := func(h http.Handler) http.Handler {
		return authMiddleware(middleware.RequireRole(models.RoleAdmin)(h))
	}

	api := http.NewServeMux()

	api.Handle("POST /auth/register", handleRegister(authService, logger))
	api.Handle("POST /auth/login", handleLogin(authService, logger))
	api.Handle("POST /auth/refresh", handleTokenRefresh(authService, logger))
	api.Handle("GET /auth/me", withAuth(handleUserMe()))

	api.Handle("POST /projects", withAuth(handleSubmitProject(projectService, logger)))
	api.Handle("GET /projects", handleListProjects(projectService, logger))
	api.Handle("GET /projects/{id}", handleGetProject(projectService, logger))
	api.Handle("POST /projects/{id}/verify", withAdmin(handleVerifyProject(projectService, logger)))
	api.Handle("POST /projects/{id}/reject", withAdmin(handleRejectProject(projectService, logger)))
	api.Handle("GET /projects/{id}/credits", handleListProjectCredits(marketService, logger))
	api.Handle("POST /projects/{id}/reviews", withAuth(handleReviewProject(projectService, logger)))
	api.Handle("GET /projects/{id}/reviews", handleListProjectReviews(projectService, logger))

	api.Handle("POST /checkout", withAuth(handleCheckout(marketService, logger)))
	api.Handle("GET /transactions", withAuth(handleListTransactions(marketService, logger)))
	api.Handle("GET /credits", withAuth(handleListHoldings(marketService, logger)))
	api.Handle("POST /credits/{id}/retire", withAuth(handleRetireCredit(marketService, logger)))

	api.Handle("POST /webhooks/stripe", handleStripeWebhook(parser, settler, logger))

	api.Handle("GET /impact", withAuth(handleImpactHistory(accountService, logger)))
	api.Handle("POST /impact", withAuth(handleRecordImpact(accountService, logger)))
	api.Handle("GET /impact/summary", withAuth(handleImpactSummary(accountService, logger)))

	api.Handle("GET /profile", withAuth(handleGetProfile(accountService, logger)))
	api.Handle("PATCH /profile", withAuth(handleUpdateProfile(accountService, logger)))

	api.Handle("POST /community/posts", withAuth(handleCreatePost(communityService, logger)))
	api.Handle("GET /community/posts", handleListPosts(communityService, logger))

	api.Handle("GET /notifications", withAuth(handleListNotifications(accountService, logger)))
	api.Handle("POST /notifications/{id}/read", withAuth(handleMarkNotificationRead(accountService, logger)))

	api.Handle("GET /leaderboard", handleLeaderboard(accountService, logger))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	return chain(root,
		middleware.LoggerMiddleware(logger),
	)
}

type authService interface {
	// Register user with email, name, role and password
	// Has to return apperrors.ErrUserAlreadyExists if the email is taken
	Register(ctx context.Context, email string, name string, role string, password string) (models.TokenPair, error)

	// Login user with email and password
	// Has to return apperrors.ErrUserNotFound on unknown email or bad password
	Login(ctx context.Context, email string, password string) (models.TokenPair, error)

	// Refresh tokens using refresh token
	// If token expired: has to return apperrors.ErrRefreshTokenExpired
	// If token reused: has to return apperrors.ErrRefreshTokenIsUsed
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Set auth tokens (access, refresh) to response
	SetTokens(w http.ResponseWriter, pair models.TokenPair)

	// Get refresh token from request
	GetRefresh(r *http.Request) (string, error)

	// Get request and return user if it authenticated or error
	GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
}

type projectService interface {
	Submit(ctx context.Context, project models.CarbonProject) (models.CarbonProject, error)
	Get(ctx context.Context, projectID uuid.UUID) (models.CarbonProject, error)
	List(ctx context.Context, opts repository.ListProjectsOpts) ([]models.CarbonProject, error)
	Verify(ctx context.Context, projectID uuid.UUID) (models.CarbonProject, error)
	Reject(ctx context.Context, projectID uuid.UUID) (models.CarbonProject, error)
	Review(ctx context.Context, reviewer models.User, projectID uuid.UUID, rating int, comment string) (models.ProjectReview, error)
	ListReviews(ctx context.Context, projectID uuid.UUID, limit int, offset int) ([]models.ProjectReview, models.ReviewSummary, error)
}

type marketService interface {
	Checkout(ctx context.Context, buyer models.User, projectID uuid.UUID, quantity int64, currency string) (market.CheckoutResult, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, opts repository.ListTransactionsOpts) ([]models.Transaction, error)
	ListHoldings(ctx context.Context, ownerID uuid.UUID) ([]models.CarbonCredit, error)
	ListProjectCredits(ctx context.Context, projectID uuid.UUID, status string, limit int, offset int) ([]models.CarbonCredit, error)
	Retire(ctx context.Context, creditID uuid.UUID, owner models.User) (models.CarbonCredit, error)
}

type accountService interface {
	ImpactHistory(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.UserImpact, error)
	RecordImpact(ctx context.Context, impact models.UserImpact) (models.UserImpact, error)
	ImpactSummary(ctx context.Context, userID uuid.UUID) (models.ImpactSummary, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, bio string, location string) (models.UserProfile, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Notifications(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) (time.Time, error)
}

type communityService interface {
	CreatePost(ctx context.Context, author models.User, title string, content string, postType string, tags []string) (models.CommunityPost, error)
	ListPosts(ctx context.Context, opts repository.ListPostsOpts) ([]models.CommunityPost, error)
}

// eventParser verifies the webhook signature and extracts the event
type eventParser interface {
	ParseEvent(r *http.Request) (market.ProviderEvent, error)
}

type settler interface {
	Settle(ctx context.Context, event market.ProviderEvent) error
}
