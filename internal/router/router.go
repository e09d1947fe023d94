package router

import (
	"fmt"
	"net/http"

	"github.com/anonto42/silex-blog/backend/internal/events"
	"github.com/anonto42/silex-blog/backend/internal/handlers"
	"github.com/anonto42/silex-blog/backend/internal/metrics"
	"github.com/anonto42/silex-blog/backend/internal/middleware"
	"github.com/anonto42/silex-blog/backend/internal/models"
	"github.com/anonto42/silex-blog/backend/internal/repositories"
	"github.com/anonto42/silex-blog/backend/pkg/config"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Dependencies are the collaborators the routes are wired to
type Dependencies struct {
	Config       *config.Config
	Log          *logrus.Logger
	Posts        repositories.PostRepository
	Users        repositories.UserRepository
	Sessions     *middleware.SessionManager
	Flashes      sessions.Store
	FirebaseAuth handlers.TokenVerifier
	Publisher    events.PostPublisher
}

// Migrate creates the tables. The posts table is only needed when posts
// live in PostgreSQL.
func Migrate(pgdb *gorm.DB, includePosts bool, log *logrus.Logger) error {
	tables := []interface{}{&models.User{}}
	if includePosts {
		tables = append(tables, &repositories.PostRecord{})
	}
	if err := pgdb.AutoMigrate(tables...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	log.WithField("tables", len(tables)).Info("PostgreSQL auto-migrations completed")
	return nil
}

// NewPostRepository picks the post store named by cfg.PostStore.
func NewPostRepository(cfg *config.Config, db *config.DB) repositories.PostRepository {
	if cfg.PostStore == config.PostStoreMongo {
		return repositories.NewMongoPostRepository(db.Mongo.Database(cfg.MongoDatabase))
	}
	return repositories.NewPostgresPostRepository(db.Postgres)
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	log := deps.Log

	e.Use(metrics.Middleware())
	// Sessions and flashes must be loaded before the firewall inspects them
	e.Use(deps.Sessions.Load())
	e.Use(session.Middleware(deps.Flashes))
	e.Use(middleware.Firewall(middleware.DefaultFirewallConfig()))
	log.Info("Metrics, session, flash and firewall middleware configured")

	// Health check and metrics - always accessible
	e.GET("/health", handlers.HealthCheck)
	e.GET("/metrics", metrics.Handler())
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/blog/")
	})

	// --- User zone ---
	userGroup := e.Group("/user")

	var loginMiddleware []echo.MiddlewareFunc
	if deps.Config.LoginRateLimit > 0 {
		loginMiddleware = append(loginMiddleware, eMiddleware.RateLimiterWithConfig(eMiddleware.RateLimiterConfig{
			Store: eMiddleware.NewRateLimiterMemoryStoreWithConfig(eMiddleware.RateLimiterMemoryStoreConfig{
				Rate:  rate.Limit(deps.Config.LoginRateLimit),
				Burst: deps.Config.LoginRateBurst,
			}),
		}))
		log.WithField("rate", deps.Config.LoginRateLimit).Info("Login rate limiter applied")
	}

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Sessions, deps.FirebaseAuth, log)
	authHandler.RegisterAuthRoutes(userGroup, loginMiddleware...)
	log.Info("Auth routes configured")

	userHandler := handlers.NewUserHandler()
	userHandler.RegisterUserRoutes(userGroup)
	log.Info("User routes configured")

	// --- Blog ---
	csrf := eMiddleware.CSRFWithConfig(eMiddleware.CSRFConfig{
		TokenLookup:    "form:_csrf",
		CookieName:     "_csrf",
		CookiePath:     "/blog",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
		CookieSecure:   !deps.Config.IsDebug(),
	})

	blogHandler := handlers.NewBlogHandler(deps.Posts, deps.Publisher, log)
	blogHandler.RegisterBlogRoutes(e.Group("/blog"), csrf)
	log.Info("Blog routes configured")

	log.Info("All routes configured")
}
