package apperror

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Body is the JSON error payload written for every failed request.
type Body struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// HTTPErrorHandler renders classified errors and *echo.HTTPError values as a
// Body. Unclassified errors are logged and rendered as a generic 500.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		rid, _ := c.Get("request_id").(string)
		body.RequestID = rid

		if status >= http.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Str("request_id", rid).Msg("write error response")
		}
	}
}

func render(err error) (int, Body) {
	var ae *Error
	if errors.As(err, &ae) {
		status := ae.Status()
		msg := ae.Message
		if ae.Kind == KindInternal {
			msg = "internal server error"
		}
		return status, Body{
			Error:   http.StatusText(status),
			Message: msg,
			Code:    codeFor(ae.Kind),
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}
		return he.Code, Body{
			Error:   http.StatusText(he.Code),
			Message: msg,
			Code:    codeFor(kindForStatus(he.Code)),
		}
	}

	return http.StatusInternalServerError, Body{
		Error:   http.StatusText(http.StatusInternalServerError),
		Message: "internal server error",
		Code:    codeFor(KindInternal),
	}
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	default:
		return KindInternal
	}
}

var codes = map[Kind]string{
	KindBadRequest:   "BAD_REQUEST",
	KindUnauthorized: "UNAUTHORIZED",
	KindForbidden:    "FORBIDDEN",
	KindNotFound:     "NOT_FOUND",
	KindConflict:     "CONFLICT",
	KindInternal:     "INTERNAL_ERROR",
}

func codeFor(k Kind) string {
	if c, ok := codes[k]; ok {
		return c
	}
	return "ERROR"
}
