package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/snapbuy/services/auth/internal/middleware"
)

type Deps struct {
	AuthHandler *AuthHTTP
	OtpHandler  *OtpHTTP
	OttHandler  *OttHTTP
	Gatekeeper  *middleware.Gatekeeper
	DB          *gorm.DB
	Now         func() time.Time
}

func Register(e *echo.Echo, d *Deps) {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	e.HTTPErrorHandler = NewErrorHandler(now)
	e.Use(d.Gatekeeper.Middleware)

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", ready(d.DB))

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signIn", d.AuthHandler.SignIn)
	auth.POST("/signUp", d.AuthHandler.SignUp)
	auth.POST("/refreshToken", d.AuthHandler.RefreshToken)
	auth.POST("/signOut", d.AuthHandler.SignOut)

	otp := api.Group("/otp")
	otp.POST("/send", d.OtpHandler.Send)
	otp.POST("/verify", d.OtpHandler.Verify)
	otp.POST("/resend", d.OtpHandler.Resend)

	ott := api.Group("/ott")
	ott.POST("/sent", d.OttHandler.Send)
	ott.POST("/login", d.OttHandler.Login)
	ott.GET("/login", d.OttHandler.Confirm)

	users := api.Group("/users", middleware.RequireIdentity)
	users.GET("/me", Me)
}

func ready(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db == nil {
			return c.NoContent(http.StatusOK)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
		}
		return c.NoContent(http.StatusOK)
	}
}
