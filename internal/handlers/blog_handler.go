package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/anonto42/silex-blog/backend/internal/events"
	"github.com/anonto42/silex-blog/backend/internal/metrics"
	"github.com/anonto42/silex-blog/backend/internal/models"
	"github.com/anonto42/silex-blog/backend/internal/repositories"
	"github.com/anonto42/silex-blog/backend/internal/views"
	"github.com/anonto42/silex-blog/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// BlogHandler serves the public post pages and the new-post form
type BlogHandler struct {
	postRepository repositories.PostRepository
	publisher      events.PostPublisher
	log            logrus.FieldLogger
}

// NewBlogHandler creates a new BlogHandler
func NewBlogHandler(postRepo repositories.PostRepository, publisher events.PostPublisher, log logrus.FieldLogger) *BlogHandler {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &BlogHandler{
		postRepository: postRepo,
		publisher:      publisher,
		log:            log,
	}
}

// RegisterBlogRoutes registers the /blog routes. formMiddleware wraps the
// new-post form only.
func (h *BlogHandler) RegisterBlogRoutes(g *echo.Group, formMiddleware ...echo.MiddlewareFunc) {
	g.GET("/", h.ListPosts)
	g.GET("/id/:id", h.ShowPost)
	g.GET("/author/:author", h.ListPostsByAuthor)
	g.Match([]string{http.MethodGet, http.MethodPost}, "/new-post", h.NewPost, formMiddleware...)
}

// ListPosts renders every post
func (h *BlogHandler) ListPosts(c echo.Context) error {
	posts, err := h.postRepository.FindAll(c.Request().Context())
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "list_posts.html", &views.HTMLData{
		Title: "List of All the Blog Posts",
		Posts: posts,
	})
}

// ShowPost renders a single post. Ids that are not integers cannot match a row.
func (h *BlogHandler) ShowPost(c echo.Context) error {
	// strict parse: "4abc" is not post 4
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid post id %q", repositories.ErrPostNotFound, c.Param("id"))
	}

	post, err := h.postRepository.Find(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "list_posts.html", &views.HTMLData{
		Title: post.Title() + " by " + post.Author(),
		Posts: []*models.Post{post},
	})
}

// ListPostsByAuthor renders the posts written by the given author
func (h *BlogHandler) ListPostsByAuthor(c echo.Context) error {
	author := c.Param("author")

	posts, err := h.postRepository.FindByAuthor(c.Request().Context(), author)
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "list_posts.html", &views.HTMLData{
		Title: "Posts by " + author,
		Posts: posts,
	})
}

// NewPost shows the new-post form and saves valid submissions. Invalid
// submissions are rendered again with inline errors and nothing is stored.
func (h *BlogHandler) NewPost(c echo.Context) error {
	form := &views.NewPostFormView{Values: models.DefaultNewPostForm()}

	if c.Request().Method == http.MethodPost {
		var submitted models.NewPostForm
		if err := c.Bind(&submitted); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
		}
		submitted.TrimSpace()
		form.Values = submitted

		if err := c.Validate(&submitted); err != nil {
			fieldErrors := validators.FieldErrors(err)
			if fieldErrors == nil {
				return err
			}
			form.Errors = fieldErrors
		} else {
			return h.savePost(c, submitted)
		}
	}

	csrfToken, _ := c.Get("csrf").(string)
	return c.Render(http.StatusOK, "new-post.html", &views.HTMLData{
		Title:     "Create a New Blog Post",
		Form:      form,
		CSRFToken: csrfToken,
	})
}

func (h *BlogHandler) savePost(c echo.Context, form models.NewPostForm) error {
	ctx := c.Request().Context()

	post := models.NewPost(form.Author, form.Title, form.Body)
	if err := h.postRepository.Save(ctx, post); err != nil {
		return err
	}
	metrics.RecordPostCreated()

	entry := h.log.WithFields(logrus.Fields{"post_id": *post.ID(), "author": post.Author()})
	if err := h.publisher.PublishPostCreated(ctx, post); err != nil {
		entry.WithError(err).Warn("Failed to publish post event")
	}
	entry.Info("Post created")

	return c.Redirect(http.StatusFound, "/blog/")
}
