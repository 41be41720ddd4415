package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/snapbuy/pkg/logging"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/service"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/transport"
)

// OtpHTTP always answers 200 with the result envelope; only an unknown account is an error.
type OtpHTTP struct {
	Svc *service.OTPVerifier
}

func bindOtpSend(c echo.Context) (service.OtpRequest, error) {
	var req transport.OtpSendRequest
	if err := c.Bind(&req); err != nil {
		return service.OtpRequest{}, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return service.OtpRequest{}, invalid(err)
	}
	return service.OtpRequest{Phone: req.Phone, Email: req.Email}, nil
}

func (h *OtpHTTP) Send(c echo.Context) error {
	ctx := c.Request().Context()
	logging.FromContext(ctx).Info("otp_send_requested")

	req, err := bindOtpSend(c)
	if err != nil {
		return err
	}
	res, err := h.Svc.Send(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *OtpHTTP) Verify(c echo.Context) error {
	ctx := c.Request().Context()
	logging.FromContext(ctx).Info("otp_verify_requested")

	var req transport.OtpVerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.Validate(); err != nil {
		return invalid(err)
	}

	res, err := h.Svc.Verify(ctx, service.OtpRequest{Phone: req.Phone, Email: req.Email, Otp: req.Otp})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *OtpHTTP) Resend(c echo.Context) error {
	ctx := c.Request().Context()
	logging.FromContext(ctx).Info("otp_resend_requested")

	req, err := bindOtpSend(c)
	if err != nil {
		return err
	}
	res, err := h.Svc.Resend(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
