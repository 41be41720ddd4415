package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	pkgconfig "github.com/Skotchmaster/snapbuy/pkg/config"
)

type Config struct {
	pkgconfig.Config

	JWTSecret          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	RefreshRotateOnUse bool

	OtpLength          int
	OtpTTL             time.Duration
	OtpCountryCode     string
	OtpCleanupInterval time.Duration

	OttTTL     time.Duration
	AppBaseURL string
	MailFrom   string

	// NotifyLogOnly allows running without a broker. Messages are then dropped.
	NotifyLogOnly bool

	AdminSignupKey string
}

func Load() Config {
	base := pkgconfig.Load()
	if base.ServiceName == "" {
		base.ServiceName = "auth"
	}

	return Config{
		Config: base,

		JWTSecret:          os.Getenv("JWT_SECRET"),
		AccessTokenTTL:     pkgconfig.EnvDurationDefault("ACCESS_TOKEN_TTL", 360*time.Hour),
		RefreshTokenTTL:    pkgconfig.EnvDurationDefault("REFRESH_TOKEN_TTL", 360*time.Hour),
		RefreshRotateOnUse: pkgconfig.EnvBoolDefault("REFRESH_ROTATE_ON_USE", true),

		OtpLength:          pkgconfig.EnvIntDefault("OTP_LENGTH", 6),
		OtpTTL:             pkgconfig.EnvDurationDefault("OTP_TTL", 5*time.Minute),
		OtpCountryCode:     pkgconfig.EnvDefault("OTP_COUNTRY_CODE", "+91"),
		OtpCleanupInterval: pkgconfig.EnvDurationDefault("OTP_CLEANUP_INTERVAL", 10*time.Minute),

		OttTTL:     pkgconfig.EnvDurationDefault("OTT_TTL", 15*time.Minute),
		AppBaseURL: pkgconfig.EnvDefault("APP_BASE_URL", "http://localhost:8080"),
		MailFrom:   pkgconfig.EnvDefault("MAIL_FROM", "noreply@snapbuy.app"),

		NotifyLogOnly: pkgconfig.EnvBoolDefault("NOTIFY_LOG_ONLY", false),

		AdminSignupKey: os.Getenv("ADMIN_SIGNUP_KEY"),
	}
}

// Validate reports every missing or out-of-range setting at once.
func (c Config) Validate() error {
	var errs []error
	if err := pkgconfig.NonEmpty(c.DatabaseURL, "DATABASE_URL"); err != nil {
		errs = append(errs, err)
	}
	if err := pkgconfig.NonEmpty(c.JWTSecret, "JWT_SECRET"); err != nil {
		errs = append(errs, err)
	}
	if len(c.KafkaBrokers) == 0 && !c.NotifyLogOnly {
		errs = append(errs, errors.New("KAFKA_BROKERS is empty: set it, or NOTIFY_LOG_ONLY=true to drop notifications"))
	}
	if c.OtpLength < 4 || c.OtpLength > 10 {
		errs = append(errs, fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", c.OtpLength))
	}
	for name, d := range map[string]time.Duration{
		"ACCESS_TOKEN_TTL":  c.AccessTokenTTL,
		"REFRESH_TOKEN_TTL": c.RefreshTokenTTL,
		"OTP_TTL":           c.OtpTTL,
		"OTT_TTL":           c.OttTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	return errors.Join(errs...)
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
