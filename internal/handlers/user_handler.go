package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/silex-blog/backend/internal/middleware"
	"github.com/anonto42/silex-blog/backend/internal/views"
	"github.com/labstack/echo/v4"
)

// UserHandler serves the /user pages behind the firewall
type UserHandler struct{}

// NewUserHandler creates a new UserHandler
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// RegisterUserRoutes registers the login form and the account pages
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/login", h.LoginForm)
	g.GET("/show-roles", h.ShowRoles)
	g.GET("/show_roles", h.ShowRoles)
	g.GET("/test", h.TestPage)
}

// LoginForm renders the login form with the outcome of the last attempt
func (h *UserHandler) LoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", &views.HTMLData{
		Title:        "Log in",
		Error:        middleware.TakeFlash(c, middleware.FlashLastError),
		LastUsername: middleware.TakeFlash(c, middleware.FlashLastUsername),
	})
}

// ShowRoles lists the roles of the logged in user
func (h *UserHandler) ShowRoles(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.String(http.StatusOK, "There is no current user.  This shouldn't happen.")
	}

	return c.String(http.StatusOK, "You are logged in as the user "+user.Username+
		" with the following roles: "+strings.Join(user.Roles, ", "))
}

// TestPage confirms that the session is accepted
func (h *UserHandler) TestPage(c echo.Context) error {
	return c.String(http.StatusOK, "Test Page - You're in!")
}
