package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/silex-blog/backend/internal/events"
	"github.com/anonto42/silex-blog/backend/internal/handlers"
	"github.com/anonto42/silex-blog/backend/internal/middleware"
	"github.com/anonto42/silex-blog/backend/internal/repositories"
	"github.com/anonto42/silex-blog/backend/internal/router"
	"github.com/anonto42/silex-blog/backend/internal/views"
	"github.com/anonto42/silex-blog/backend/pkg/config"
	"github.com/anonto42/silex-blog/backend/pkg/firebase"
	"github.com/anonto42/silex-blog/backend/pkg/logger"
	"github.com/anonto42/silex-blog/backend/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if !cfg.EnvFileLoaded {
		log.Info("No .env file found, using process environment")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize databases")
	}
	defer db.CloseDB(log) // Ensure database connections are closed when main exits

	if err := router.Migrate(db.Postgres, cfg.PostStore == config.PostStorePostgres, log); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}

	// Firebase login is optional
	var firebaseAuth handlers.TokenVerifier
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize Firebase")
		}
		firebaseAuth = firebaseApp.AuthClient
	}

	// Post events are optional
	var publisher events.PostPublisher = events.NoopPublisher{}
	if cfg.RedisAddr != "" {
		client, err := events.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize redis")
		}
		publisher = events.NewRedisPublisher(client, cfg.RedisStream)
		log.WithField("stream", cfg.RedisStream).Info("Publishing post events to redis")
	}
	defer publisher.Close()

	renderer, err := views.NewRenderer()
	if err != nil {
		log.WithError(err).Fatal("Failed to parse templates")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Debug = cfg.IsDebug()
	e.Renderer = renderer
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler(cfg.IsDebug(), log)

	// Setup global middleware
	config.SetupMiddleware(e, log)

	// Setup routes and dependencies
	router.SetupRoutes(e, router.Dependencies{
		Config:       cfg,
		Log:          log,
		Posts:        router.NewPostRepository(cfg, db),
		Users:        repositories.NewPostgresUserRepository(db.Postgres),
		Sessions:     middleware.NewSessionManager(cfg.JWTSecret, cfg.SessionTTL, !cfg.IsDebug()),
		Flashes:      middleware.NewFlashStore(cfg.JWTSecret, !cfg.IsDebug()),
		FirebaseAuth: firebaseAuth,
		Publisher:    publisher,
	})

	// Start server
	go func() {
		log.WithField("port", cfg.Port).Info("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
