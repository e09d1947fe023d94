package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/silex-blog/backend/internal/middleware"
	"github.com/anonto42/silex-blog/backend/internal/models"
	"github.com/anonto42/silex-blog/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	loginPath         = "/user/login"
	defaultTargetPath = "/blog/"
	badCredentials    = "Bad credentials."
)

// TokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthHandler handles the firewall's login check, logout and Firebase login
type AuthHandler struct {
	userRepository repositories.UserRepository
	sessions       *middleware.SessionManager
	firebaseAuth   TokenVerifier
	log            logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil, which
// disables the Firebase login endpoint.
func NewAuthHandler(userRepo repositories.UserRepository, sessions *middleware.SessionManager, firebaseAuth TokenVerifier, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		sessions:       sessions,
		firebaseAuth:   firebaseAuth,
		log:            log,
	}
}

// RegisterAuthRoutes registers the authentication endpoints. loginMiddleware
// wraps the credential checks.
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group, loginMiddleware ...echo.MiddlewareFunc) {
	g.POST("/login_check", h.LoginCheck, loginMiddleware...)
	g.GET("/logout", h.Logout)
	g.POST("/firebase-login", h.FirebaseLogin, loginMiddleware...)
}

// LoginCheck verifies the submitted credentials and starts a session
func (h *AuthHandler) LoginCheck(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return h.failLogin(c, req.Username, badCredentials)
	}

	user, err := h.userRepository.GetUserByUsername(c.Request().Context(), req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return h.failLogin(c, req.Username, fmt.Sprintf("Username %q does not exist.", req.Username))
		}
		return err
	}

	if !user.CheckPassword(req.Password) {
		return h.failLogin(c, req.Username, badCredentials)
	}

	if err := h.sessions.Issue(c, user); err != nil {
		return err
	}
	h.log.WithField("username", user.Username).Info("Login successful")

	return c.Redirect(http.StatusFound, targetPath(c))
}

// Logout ends the session and returns to the login form
func (h *AuthHandler) Logout(c echo.Context) error {
	h.sessions.Clear(c)
	return c.Redirect(http.StatusFound, loginPath)
}

// FirebaseLogin exchanges a Firebase ID token for a session, creating the
// local account on first use.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.ErrNotFound
	}

	var req models.FirebaseLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "idToken is required")
	}

	ctx := c.Request().Context()
	token, err := h.firebaseAuth.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		h.log.WithError(err).Warn("Rejected Firebase ID token")
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, token.UID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		user, err = h.createFirebaseUser(ctx, token)
	}
	if errors.Is(err, repositories.ErrUsernameTaken) {
		h.log.WithField("firebase_uid", token.UID).Warn("Firebase account collides with an existing username")
		return echo.NewHTTPError(http.StatusConflict, "An account with this username already exists. Log in with your password instead.")
	}
	if err != nil {
		return err
	}

	if err := h.sessions.Issue(c, user); err != nil {
		return err
	}
	h.log.WithField("username", user.Username).Info("Firebase login successful")

	return c.JSON(http.StatusOK, echo.Map{
		"username": user.Username,
		"roles":    user.RoleList(),
		"target":   targetPath(c),
	})
}

func (h *AuthHandler) createFirebaseUser(ctx context.Context, token *auth.Token) (*models.User, error) {
	username := token.UID
	if email, ok := token.Claims["email"].(string); ok && email != "" {
		username = email
	}

	// the account can only log in through Firebase
	password, err := randomPassword()
	if err != nil {
		return nil, err
	}

	uid := token.UID
	user := &models.User{
		Username:    username,
		Password:    password,
		Roles:       models.RoleUser,
		FirebaseUID: &uid,
	}
	if err := user.HashPassword(); err != nil {
		return nil, err
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create firebase user: %w", err)
	}
	return user, nil
}

func (h *AuthHandler) failLogin(c echo.Context, username, message string) error {
	h.log.WithField("username", username).Info("Login failed")
	if err := middleware.SetFlash(c, middleware.FlashLastError, message); err != nil {
		return err
	}
	if err := middleware.SetFlash(c, middleware.FlashLastUsername, username); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, loginPath)
}

// targetPath returns the page the firewall interrupted, if it is a local path.
func targetPath(c echo.Context) string {
	target := middleware.TakeFlash(c, middleware.FlashTargetPath)
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return defaultTargetPath
	}
	return target
}

func randomPassword() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
