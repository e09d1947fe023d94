package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anonto42/silex-blog/backend/internal/repositories"
	"github.com/anonto42/silex-blog/backend/internal/views"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ErrorHandler renders failures as HTML pages. Missing posts get the
// dedicated 404 page; in debug mode server errors show their cause.
func ErrorHandler(debug bool, log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if errors.Is(err, repositories.ErrPostNotFound) {
			log.WithError(err).Debug("Post not found")
			render(c, http.StatusNotFound, "404.html", &views.HTMLData{
				Title:   "Post not found",
				Message: "Post not found!",
				Status:  http.StatusNotFound,
			}, log)
			return
		}

		code := http.StatusInternalServerError
		message := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			message = fmt.Sprint(he.Message)
		}

		if code >= http.StatusInternalServerError {
			log.WithError(err).WithField("uri", c.Request().RequestURI).Error("Request failed")
			if debug {
				message = err.Error()
			}
		}

		render(c, code, "error.html", &views.HTMLData{
			Title:   http.StatusText(code),
			Message: message,
			Status:  code,
		}, log)
	}
}

func render(c echo.Context, code int, name string, data *views.HTMLData, log logrus.FieldLogger) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.Render(code, name, data)
	}
	if err != nil {
		log.WithError(err).Error("Failed to render error page")
		_ = c.String(code, data.Message)
	}
}
