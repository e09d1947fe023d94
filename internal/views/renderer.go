package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"path"
	"time"

	"github.com/anonto42/silex-blog/backend/internal/middleware"
	"github.com/anonto42/silex-blog/backend/internal/models"
	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// HTMLData is the view model shared by every page
type HTMLData struct {
	Title       string
	Path        string
	CurrentUser *models.SessionClaims

	Posts   []*models.Post
	Message string
	Status  int

	Form      *NewPostFormView
	CSRFToken string

	LastUsername string
	Error        string
}

// NewPostFormView carries submitted values and per-field errors
type NewPostFormView struct {
	Values models.NewPostForm
	Errors map[string]string
}

var functions = template.FuncMap{
	"pathEscape": url.PathEscape,
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
}

// Renderer implements echo.Renderer over the embedded page templates.
// Each page is parsed together with the shared layout.
type Renderer struct {
	templates map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		if page == layoutFile {
			continue
		}
		ts, err := template.New(path.Base(page)).Funcs(functions).ParseFS(templateFS, layoutFile, page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		r.templates[path.Base(page)] = ts
	}
	return r, nil
}

// Render writes the named page. Page data is completed with the request
// path and current user before execution.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	ts, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	if page, ok := data.(*HTMLData); ok && c != nil {
		page.Path = c.Request().URL.Path
		if page.CurrentUser == nil {
			page.CurrentUser = middleware.CurrentUser(c)
		}
	}

	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "base", data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
