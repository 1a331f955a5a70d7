package apperror

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// envelope is the error body returned to clients.
type envelope struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindInvalidState, KindReferentialConflict, KindConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler returns an echo.HTTPErrorHandler that renders Kind-tagged
// errors as structured envelopes. echo.HTTPError passes through with its
// own status; anything else becomes a 500 with the detail logged, not leaked.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var appErr *Error
		if errors.As(err, &appErr) {
			status := HTTPStatus(appErr.Kind)
			if status >= http.StatusInternalServerError {
				logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			}
			_ = c.JSON(status, envelope{
				Code:      appErr.Kind.String(),
				Message:   appErr.Message,
				Retryable: appErr.Kind == KindConcurrencyConflict,
			})
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			msg, ok := httpErr.Message.(string)
			if !ok {
				msg = http.StatusText(httpErr.Code)
			}
			_ = c.JSON(httpErr.Code, envelope{Code: codeForStatus(httpErr.Code), Message: msg})
			return
		}

		logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		_ = c.JSON(http.StatusInternalServerError, envelope{Code: "internal", Message: "internal server error"})
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusConflict:
		return "conflict"
	default:
		return "internal"
	}
}
