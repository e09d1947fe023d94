package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/silex-blog/backend/internal/handlers"
	"github.com/anonto42/silex-blog/backend/internal/middleware"
	"github.com/anonto42/silex-blog/backend/internal/models"
	"github.com/anonto42/silex-blog/backend/internal/repositories"
	"github.com/anonto42/silex-blog/backend/internal/views"
	"github.com/anonto42/silex-blog/backend/pkg/config"
	"github.com/anonto42/silex-blog/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryPosts struct {
	posts []*models.Post
}

func (m *memoryPosts) Find(_ context.Context, id int64) (*models.Post, error) {
	for _, p := range m.posts {
		if *p.ID() == id {
			return p, nil
		}
	}
	return nil, repositories.ErrPostNotFound
}

func (m *memoryPosts) FindAll(context.Context) ([]*models.Post, error) {
	if len(m.posts) == 0 {
		return nil, repositories.ErrPostNotFound
	}
	return m.posts, nil
}

func (m *memoryPosts) FindByAuthor(context.Context, string) ([]*models.Post, error) {
	return m.FindAll(context.Background())
}

func (m *memoryPosts) Save(_ context.Context, post *models.Post) error {
	id := int64(len(m.posts) + 1)
	post.SetID(&id)
	m.posts = append(m.posts, post)
	return nil
}

type noUsers struct{}

func (noUsers) CreateUser(context.Context, *models.User) error { return nil }

func (noUsers) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (noUsers) GetUserByFirebaseUID(context.Context, string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (noUsers) UpdateUser(context.Context, *models.User) error { return nil }

type testApp struct {
	e        *echo.Echo
	posts    *memoryPosts
	sessions *middleware.SessionManager
}

func newTestApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	renderer, err := views.NewRenderer()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler(false, log)

	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	app := &testApp{
		e:        e,
		posts:    &memoryPosts{posts: []*models.Post{models.RestorePost(1, "alice", "First post", at, at, "The very first post on the blog.")}},
		sessions: middleware.NewSessionManager("secret", time.Hour, false),
	}

	SetupRoutes(e, Dependencies{
		Config:   cfg,
		Log:      log,
		Posts:    app.posts,
		Users:    noUsers{},
		Sessions: app.sessions,
		Flashes:  middleware.NewFlashStore("flash-secret", false),
	})
	return app
}

func (a *testApp) get(t *testing.T, target string, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if user != nil {
		token, err := a.sessions.NewToken(user)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t, &config.Config{})

	rec := app.get(t, "/blog/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "First post")

	rec = app.get(t, "/blog/id/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.get(t, "/user/login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.get(t, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.get(t, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/blog/", rec.Header().Get(echo.HeaderLocation))
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, &config.Config{})
	app.get(t, "/blog/", nil)

	rec := app.get(t, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "blog_http_requests_total")
}

func TestSecuredPagesRedirectAnonymous(t *testing.T) {
	app := newTestApp(t, &config.Config{})

	for _, target := range []string{"/blog/new-post", "/user/test", "/user/show-roles"} {
		rec := app.get(t, target, nil)

		assert.Equal(t, http.StatusFound, rec.Code, target)
		assert.Equal(t, "/user/login", rec.Header().Get(echo.HeaderLocation), target)
	}
}

func TestSecuredPagesWithSession(t *testing.T) {
	app := newTestApp(t, &config.Config{})
	user := &models.User{ID: 1, Username: "admin", Roles: models.RoleUser}

	rec := app.get(t, "/user/test", user)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Test Page - You're in!", rec.Body.String())

	rec = app.get(t, "/blog/new-post", user)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="_csrf" value="`)
	assert.NotContains(t, rec.Body.String(), `name="_csrf" value=""`)
}

func TestNewPostRequiresRole(t *testing.T) {
	app := newTestApp(t, &config.Config{})

	rec := app.get(t, "/blog/new-post", &models.User{ID: 2, Username: "guest", Roles: "ROLE_GUEST"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access Denied.")
}

func TestNewPostRejectsMissingCSRFToken(t *testing.T) {
	app := newTestApp(t, &config.Config{})
	token, err := app.sessions.NewToken(&models.User{ID: 1, Username: "admin", Roles: models.RoleUser})
	require.NoError(t, err)

	form := url.Values{"title": {"A new post"}, "body": {"This body is long enough to be accepted."}}
	req := httptest.NewRequest(http.MethodPost, "/blog/new-post", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)

	assert.Contains(t, []int{http.StatusBadRequest, http.StatusForbidden}, rec.Code)
	assert.Len(t, app.posts.posts, 1)
}

func TestLoginRateLimit(t *testing.T) {
	app := newTestApp(t, &config.Config{LoginRateLimit: 1, LoginRateBurst: 1})

	login := func() int {
		form := url.Values{"_username": {"nobody"}, "_password": {"secret"}}
		req := httptest.NewRequest(http.MethodPost, "/user/login_check", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()
		app.e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusFound, login())
	assert.Equal(t, http.StatusTooManyRequests, login())
}

func TestLoginFailureAfterFirewallRedirect(t *testing.T) {
	app := newTestApp(t, &config.Config{})

	rec := app.get(t, "/blog/new-post", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	var flash *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == middleware.FlashSessionName {
			flash = cookie
		}
	}
	require.NotNil(t, flash)

	form := url.Values{"_username": {"nobody"}, "_password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/user/login_check", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(flash)
	rec = httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)

	// unknown user: back to the form, with the error carried by the same flash cookie
	assert.Equal(t, "/user/login", rec.Header().Get(echo.HeaderLocation))
}
