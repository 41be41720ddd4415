package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/snapbuy/pkg/logging"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/service"
)

const (
	msgUnexpected     = "An unexpected error occurred"
	msgRefreshExpired = "Refresh token has expired. Please sign in again."
	msgRefreshInvalid = "Refresh token is invalid or not found in database."
)

type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", service.ErrValidation, err)
}

// translate maps an error to a status code and a client-safe message.
func translate(err error) (int, string) {
	var tokErr *service.TokenError
	if errors.As(err, &tokErr) && tokErr.Kind == service.KindRefresh {
		if errors.Is(tokErr, service.ErrTokenExpired) {
			return http.StatusUnauthorized, msgRefreshExpired
		}
		return http.StatusUnauthorized, msgRefreshInvalid
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "Token has expired"
	case errors.Is(err, service.ErrTokenInvalid):
		return http.StatusUnauthorized, "Token is invalid"
	case errors.Is(err, service.ErrOtpMismatch):
		return http.StatusUnauthorized, service.MsgOtpInvalid
	case errors.Is(err, service.ErrOtpExpired):
		return http.StatusUnauthorized, service.MsgOtpExpired
	case errors.Is(err, service.ErrOtpNotFound):
		return http.StatusUnauthorized, service.MsgOtpNotFound
	case errors.Is(err, service.ErrUserAlreadyExists):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, service.ErrMessageDispatchFailed):
		return http.StatusBadGateway, "Failed to deliver the message"
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return he.Code, msg
	}

	return http.StatusInternalServerError, msgUnexpected
}

// NewErrorHandler renders every handler error as an ErrorResponse.
func NewErrorHandler(now func() time.Time) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := translate(err)
		l := logging.FromContext(c.Request().Context())
		if code >= http.StatusInternalServerError {
			l.Error("request_failed", "status", code, "error", err)
		} else {
			l.Debug("request_rejected", "status", code, "error", err)
		}

		c.Response().Header().Set("Cache-Control", "no-store")
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, ErrorResponse{
			Timestamp: now().UTC(),
			Status:    code,
			Error:     http.StatusText(code),
			Message:   msg,
			Path:      c.Request().URL.Path,
		})
	}
}
