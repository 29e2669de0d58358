package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amanarcarbon/carbonmart/internal/db"
	"github.com/amanarcarbon/carbonmart/internal/handlers"
	"github.com/amanarcarbon/carbonmart/internal/logger"
	"github.com/amanarcarbon/carbonmart/internal/repository/postgres"
	"github.com/amanarcarbon/carbonmart/internal/service/account"
	"github.com/amanarcarbon/carbonmart/internal/service/auth"
	"github.com/amanarcarbon/carbonmart/internal/service/community"
	"github.com/amanarcarbon/carbonmart/internal/service/market"
	"github.com/amanarcarbon/carbonmart/internal/service/project"
	"github.com/amanarcarbon/carbonmart/internal/stripeclient"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger  logger.Logger
	sweeper *market.HoldSweeper
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	tokenManager, err := auth.NewTokenManager(auth.TokenConfig{SecretKey: c.SecretKey}, storage.Refresh())
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	authService, err := auth.NewService(auth.Config{}, tokenManager, storage.User())
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	stripeClient := stripeclient.New(c.StripeSecretKey, c.StripeWebhookSecret)

	projectService := project.NewService(storage)
	marketService := market.NewService(market.Config{HoldTTL: c.HoldTTL}, stripeClient, storage, logger)
	accountService := account.NewService(storage)
	communityService := community.NewService(storage)

	mux := handlers.NewRouter(
		authService,
		projectService,
		marketService,
		accountService,
		communityService,
		stripeClient,
		marketService,
		logger,
	)

	sweeper := market.NewHoldSweeper(market.SweeperConfig{Interval: c.SweepInterval}, marketService, logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     logger,
		sweeper:    sweeper,
	}, nil
}

// Run starts the http server and the hold sweeper, closing both
// gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	sweeperStopped := s.sweeper.Sweep(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-sweeperStopped

	return err
}
