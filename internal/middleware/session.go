package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anonto42/silex-blog/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	// SessionCookieName holds the signed session token.
	SessionCookieName = "blog_session"

	userContextKey = "user"
)

// SessionManager issues and verifies the JWT kept in the session cookie
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewSessionManager creates a SessionManager. secure marks cookies HTTPS-only.
func NewSessionManager(secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl, secure: secure}
}

// NewToken signs the session claims for user.
func (m *SessionManager) NewToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.SessionClaims{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    user.RoleList(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken verifies the signature and expiry of a session token.
func (m *SessionManager) ParseToken(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

// Issue starts a session for user by setting the session cookie.
func (m *SessionManager) Issue(c echo.Context, user *models.User) error {
	token, err := m.NewToken(user)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Load attaches the claims of a valid session cookie to the request.
// Requests without a usable session continue anonymously.
func (m *SessionManager) Load() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			claims, err := m.ParseToken(cookie.Value)
			if err != nil {
				c.Logger().Debugf("discarding session cookie: %v", err)
				m.Clear(c)
				return next(c)
			}

			c.Set(userContextKey, claims)
			return next(c)
		}
	}
}

// CurrentUser returns the logged in user's claims, or nil for anonymous requests.
func CurrentUser(c echo.Context) *models.SessionClaims {
	claims, _ := c.Get(userContextKey).(*models.SessionClaims)
	return claims
}
