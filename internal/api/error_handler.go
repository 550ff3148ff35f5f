package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrInvalidCoordinates),
		errors.Is(err, domain.ErrInvalidPosition),
		errors.Is(err, domain.ErrInvalidBoundary):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access forbidden"
	case errors.Is(err, domain.ErrRegionNotFound):
		return http.StatusNotFound, "region not found"
	case errors.Is(err, domain.ErrStateNotFound):
		return http.StatusNotFound, "entity state not found"
	}

	// Retryable dependency failures: log the cause, keep the message generic.
	switch {
	case errors.Is(err, domain.ErrRegionStoreUnavailable):
		logFailure(log, c, err, "region store unavailable")
		return http.StatusServiceUnavailable, "region store unavailable, retry later"
	case errors.Is(err, domain.ErrStateStore):
		logFailure(log, c, err, "state store failure")
		return http.StatusServiceUnavailable, "state store unavailable, retry later"
	case errors.Is(err, domain.ErrLockTimeout):
		logFailure(log, c, err, "lock wait timed out")
		return http.StatusServiceUnavailable, "entity busy, retry later"
	}

	// Unexpected error: log the real cause, return a generic message.
	logFailure(log, c, err, "unhandled error")
	return http.StatusInternalServerError, "internal server error"
}

func logFailure(log zerolog.Logger, c echo.Context, err error, msg string) {
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg(msg)
}
