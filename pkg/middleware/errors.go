package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"CampusNotify/internal/apperr"
)

type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

var statusByCode = map[string]int{
	"unauthenticated":     http.StatusUnauthorized,
	"forbidden":           http.StatusForbidden,
	"invalid_role":        http.StatusBadRequest,
	"no_recipients_found": http.StatusBadRequest,
	"not_found":           http.StatusNotFound,
	"validation_error":    http.StatusBadRequest,
	"persistence_failure": http.StatusInternalServerError,
	"internal_error":      http.StatusInternalServerError,
}

// HTTPErrorHandler renders every handler error as the JSON error envelope.
func HTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("requestId", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, ErrorResponse{Error: body})
		}
		if err != nil {
			logger.Warn("failed to write error response", zap.Error(err))
		}
	}
}

func render(err error) (int, ErrorBody) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, ErrorBody{
			Code:    codeForStatus(httpErr.Code),
			Message: fmt.Sprint(httpErr.Message),
		}
	}

	code := apperr.Code(err)
	status := statusByCode[code]
	body := ErrorBody{Code: code, Message: err.Error()}

	var validationErr *apperr.ValidationError
	if errors.As(err, &validationErr) {
		body.Message = "request validation failed"
		body.Details = []ErrorDetail{{Field: validationErr.Field, Message: validationErr.Message}}
	}
	if status >= http.StatusInternalServerError {
		body.Message = http.StatusText(status)
	}
	return status, body
}

// codeForStatus derives a snake_case code for errors raised by echo itself,
// such as malformed bodies or unknown routes.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	}
	return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
}
