package middleware

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// FlashSessionName is the cookie session that carries flash values.
const FlashSessionName = "blog_flash"

// Flash values survive exactly one redirect.
const (
	FlashLastError    = "_security.last_error"
	FlashLastUsername = "_security.last_username"
	FlashTargetPath   = "_security.target_path"
)

// NewFlashStore keeps flash values in a short-lived signed cookie.
// Install it with session.Middleware before the firewall.
func NewFlashStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SetFlash stores value until the next TakeFlash of name.
func SetFlash(c echo.Context, name, value string) error {
	sess, err := session.Get(FlashSessionName, c)
	if sess == nil {
		return err
	}
	sess.AddFlash(value, name)
	return sess.Save(c.Request(), c.Response())
}

// TakeFlash reads and clears a flash value. Missing or tampered values read as "".
func TakeFlash(c echo.Context, name string) string {
	sess, _ := session.Get(FlashSessionName, c)
	if sess == nil {
		return ""
	}

	flashes := sess.Flashes(name)
	if len(flashes) == 0 {
		return ""
	}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		c.Logger().Warnf("failed to clear flash %s: %v", name, err)
	}

	value, _ := flashes[len(flashes)-1].(string)
	return value
}
