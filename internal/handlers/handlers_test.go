package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/anonto42/silex-blog/backend/internal/middleware"
	"github.com/anonto42/silex-blog/backend/internal/models"
	"github.com/anonto42/silex-blog/backend/internal/repositories"
	"github.com/anonto42/silex-blog/backend/internal/views"
	"github.com/anonto42/silex-blog/backend/validators"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakePostRepository struct {
	posts   []*models.Post
	saved   int
	saveErr error
}

func (r *fakePostRepository) Find(_ context.Context, id int64) (*models.Post, error) {
	for _, p := range r.posts {
		if *p.ID() == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: a post with id=%d was not found", repositories.ErrPostNotFound, id)
}

func (r *fakePostRepository) FindAll(context.Context) ([]*models.Post, error) {
	if len(r.posts) == 0 {
		return nil, repositories.ErrPostNotFound
	}
	return r.posts, nil
}

func (r *fakePostRepository) FindByAuthor(_ context.Context, author string) ([]*models.Post, error) {
	var found []*models.Post
	for _, p := range r.posts {
		if p.Author() == author {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return nil, repositories.ErrPostNotFound
	}
	return found, nil
}

func (r *fakePostRepository) Save(_ context.Context, post *models.Post) error {
	r.saved++
	if r.saveErr != nil {
		return r.saveErr
	}
	id := int64(len(r.posts) + 1)
	post.SetID(&id)
	post.SetPersisted(true)
	r.posts = append(r.posts, post)
	return nil
}

type fakeUserRepository struct {
	users []*models.User
}

func (r *fakeUserRepository) CreateUser(_ context.Context, user *models.User) error {
	for _, u := range r.users {
		if u.Username == user.Username {
			return repositories.ErrUsernameTaken
		}
	}
	user.ID = uint(len(r.users) + 1)
	r.users = append(r.users, user)
	return nil
}

func (r *fakeUserRepository) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepository) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	for _, u := range r.users {
		if u.FirebaseUID != nil && *u.FirebaseUID == uid {
			return u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepository) UpdateUser(context.Context, *models.User) error {
	return nil
}

var testFlashStore = middleware.NewFlashStore("flash-secret", false)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()

	renderer, err := views.NewRenderer()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = ErrorHandler(false, newTestLogger())
	e.Use(session.Middleware(testFlashStore))
	return e
}

func newBlogServer(t *testing.T, repo *fakePostRepository) *echo.Echo {
	t.Helper()

	e := newTestEcho(t)
	NewBlogHandler(repo, nil, newTestLogger()).RegisterBlogRoutes(e.Group("/blog"))
	return e
}

func newUser(t *testing.T, username, password, roles string) *models.User {
	t.Helper()

	user := &models.User{Username: username, Password: password, Roles: roles}
	require.NoError(t, user.HashPassword())
	return user
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// findCookie returns the last Set-Cookie for name, which is the one a browser keeps.
func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			found = cookie
		}
	}
	return found
}

func newFlashEcho() *echo.Echo {
	e := echo.New()
	e.Use(session.Middleware(testFlashStore))
	return e
}

// flashValue reads name from the flash cookie set on rec.
func flashValue(t *testing.T, rec *httptest.ResponseRecorder, name string) string {
	t.Helper()

	cookie := findCookie(rec, middleware.FlashSessionName)
	require.NotNil(t, cookie, "flash cookie not set")

	e := newFlashEcho()
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, middleware.TakeFlash(c, name))
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	return serve(e, req).Body.String()
}

// flashCookie builds a flash cookie holding the given name/value pairs.
func flashCookie(t *testing.T, pairs ...string) *http.Cookie {
	t.Helper()

	e := newFlashEcho()
	e.GET("/", func(c echo.Context) error {
		for i := 0; i+1 < len(pairs); i += 2 {
			if err := middleware.SetFlash(c, pairs[i], pairs[i+1]); err != nil {
				return err
			}
		}
		return c.NoContent(http.StatusNoContent)
	})
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))

	cookie := findCookie(rec, middleware.FlashSessionName)
	require.NotNil(t, cookie)
	return cookie
}
