package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/docqad/internal/document"
	"github.com/fyrsmithlabs/docqad/internal/qa"
)

// httpError translates service errors into HTTP responses. Unknown errors
// become 500 with a generic message so internals never leak to clients.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, document.ErrInvalidUpload),
		errors.Is(err, qa.ErrInvalidQuestion),
		errors.Is(err, qa.ErrInvalidFeedback):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, document.ErrDuplicateFilename):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, document.ErrNotFound),
		errors.Is(err, qa.ErrSessionNotFound),
		errors.Is(err, qa.ErrFeedbackNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, qa.ErrNoContext):
		return echo.NewHTTPError(http.StatusNotFound, "No relevant documents found for the question.")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
