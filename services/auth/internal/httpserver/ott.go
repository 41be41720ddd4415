package httpserver

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/snapbuy/services/auth/internal/service"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/transport"
)

// confirmPage is what an emailed link opens. Redemption only happens on the POST,
// so mail scanners prefetching the link cannot use it up.
var confirmPage = template.Must(template.New("confirm").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><meta name="referrer" content="no-referrer"><title>SnapBuy sign-in</title></head>
<body>
<form method="post" action="{{.Action}}">
<input type="hidden" name="token" value="{{.Token}}">
<button type="submit">Sign in to SnapBuy</button>
</form>
</body>
</html>
`))

type OttHTTP struct {
	Svc *service.MagicLinkIssuer
}

// Send accepts the email as a query parameter or in a JSON body.
func (h *OttHTTP) Send(c echo.Context) error {
	var req transport.MagicLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" {
		req.Email = c.QueryParam("email")
	}
	if err := req.Validate(); err != nil {
		return invalid(err)
	}

	if err := h.Svc.Generate(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.String(http.StatusOK, service.MsgMagicLinkSent)
}

// Confirm serves the emailed link. It does not touch the token.
func (h *OttHTTP) Confirm(c echo.Context) error {
	req := transport.TokenRequest{Token: c.QueryParam("token")}
	if err := req.Validate(); err != nil {
		return invalid(err)
	}

	var buf bytes.Buffer
	if err := confirmPage.Execute(&buf, map[string]string{
		"Action": service.MagicLinkPath,
		"Token":  req.Token,
	}); err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	c.Response().Header().Set("Referrer-Policy", "no-referrer")
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// Login redeems a magic link from a JSON body, the confirm page form or the query.
func (h *OttHTTP) Login(c echo.Context) error {
	var req transport.TokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Token == "" {
		req.Token = c.QueryParam("token")
	}
	if err := req.Validate(); err != nil {
		return invalid(err)
	}

	pair, err := h.Svc.Redeem(c.Request().Context(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}
