package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/webinar-search-api/internal/models"
	"github.com/webinar-search-api/internal/repository"
	"github.com/webinar-search-api/internal/services"
	"github.com/webinar-search-api/pkg/schema/db"
	pkgservices "github.com/webinar-search-api/pkg/schema/services"
)

// queryField is the query-text parameter; problems with it are reported as 422.
const queryField = "q"

// errorStatus maps a service error to an HTTP status and client message.
func errorStatus(err error) (int, string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		if verr.Field == queryField {
			return http.StatusUnprocessableEntity, verr.Error()
		}
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "Webinar not found"
	case errors.Is(err, pkgservices.ErrModelUnavailable):
		return http.StatusServiceUnavailable, "Embedding model unavailable"
	case errors.Is(err, db.ErrDatastoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Datastore unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeError renders err as an ErrorResponse. Server-side failures are logged.
func writeError(c echo.Context, err error) error {
	status, detail := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Default().ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", status,
			"error", err)
	}
	return c.JSON(status, models.ErrorResponse{Detail: detail})
}

// HTTPErrorHandler renders errors raised outside the handlers (unknown
// routes, timeouts, panics) with the same body shape.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		detail := http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			detail = msg
		}
		if err := c.JSON(he.Code, models.ErrorResponse{Detail: detail}); err != nil {
			slog.Default().Error("write error response", "error", err)
		}
		return
	}

	if err := writeError(c, err); err != nil {
		slog.Default().Error("write error response", "error", err)
	}
}

// queryInt reads an optional integer query parameter.
func queryInt(c echo.Context, name string, defaultValue int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &services.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return v, nil
}

// queryBool accepts the usual boolean spellings (true/false, 1/0, yes/no,
// on/off, t/f, y/n) in any case. Anything else is a validation error.
func queryBool(c echo.Context, name string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(c.QueryParam(name))) {
	case "":
		return false, nil
	case "true", "1", "yes", "on", "t", "y":
		return true, nil
	case "false", "0", "no", "off", "f", "n":
		return false, nil
	}
	return false, &services.ValidationError{Field: name, Reason: "must be a boolean"}
}
