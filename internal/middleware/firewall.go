package middleware

import (
	"net/http"
	"regexp"

	"github.com/anonto42/silex-blog/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// AccessRule requires Role for every path matching Path
type AccessRule struct {
	Path *regexp.Regexp
	Role string
}

// FirewallConfig describes the authentication zones of the application
type FirewallConfig struct {
	// Public paths skip the firewall entirely.
	Public *regexp.Regexp
	// Secured paths need an authenticated session.
	Secured *regexp.Regexp
	// Endpoints are handled by the authentication handlers themselves.
	Endpoints []string
	// LoginPath is where anonymous visitors are sent.
	LoginPath   string
	AccessRules []AccessRule
}

// DefaultFirewallConfig protects /user* and /blog/new-post*, leaving the
// login form open, and reserves /blog/new-post for ROLE_USER.
func DefaultFirewallConfig() FirewallConfig {
	return FirewallConfig{
		Public:    regexp.MustCompile(`^/user/login$`),
		Secured:   regexp.MustCompile(`(^/user)|(^/blog/new-post)`),
		Endpoints: []string{"/user/login_check", "/user/logout", "/user/firebase-login"},
		LoginPath: "/user/login",
		AccessRules: []AccessRule{
			{Path: regexp.MustCompile(`^/blog/new-post`), Role: models.RoleUser},
		},
	}
}

// Firewall enforces cfg. It must run after SessionManager.Load and the
// flash session middleware.
func Firewall(cfg FirewallConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if cfg.Public.MatchString(path) || isEndpoint(cfg.Endpoints, path) {
				return next(c)
			}

			user := CurrentUser(c)
			if cfg.Secured.MatchString(path) {
				if user == nil {
					return startAuthentication(c, cfg.LoginPath)
				}
				c.Response().Header().Set("Cache-Control", "no-store")
			}

			for _, rule := range cfg.AccessRules {
				if !rule.Path.MatchString(path) {
					continue
				}
				if user == nil {
					return startAuthentication(c, cfg.LoginPath)
				}
				if !user.HasRole(rule.Role) {
					return echo.NewHTTPError(http.StatusForbidden, "Access Denied.")
				}
			}

			return next(c)
		}
	}
}

func startAuthentication(c echo.Context, loginPath string) error {
	if c.Request().Method == http.MethodGet {
		if err := SetFlash(c, FlashTargetPath, c.Request().URL.RequestURI()); err != nil {
			return err
		}
	}
	return c.Redirect(http.StatusFound, loginPath)
}

func isEndpoint(endpoints []string, path string) bool {
	for _, e := range endpoints {
		if e == path {
			return true
		}
	}
	return false
}
