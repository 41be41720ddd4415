package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	pkgconfig "github.com/Skotchmaster/snapbuy/pkg/config"
	"github.com/Skotchmaster/snapbuy/pkg/db"
	"github.com/Skotchmaster/snapbuy/pkg/events"
	"github.com/Skotchmaster/snapbuy/pkg/logging"
	loggingmw "github.com/Skotchmaster/snapbuy/pkg/middleware/logging"
	"github.com/Skotchmaster/snapbuy/pkg/tokens"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/config"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/httpserver"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/middleware"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/notify"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/repo"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/service"
)

type messaging struct {
	events   events.Publisher
	sender   notify.Sender
	producer *events.Producer
}

func setupMessaging(cfg config.Config, l *slog.Logger) messaging {
	var (
		m     messaging
		sinks events.Fanout
	)

	if len(cfg.KafkaBrokers) > 0 {
		p, err := events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka init error: %v", err)
		}
		m.producer = p
		sinks = append(sinks, p)
		m.sender = &notify.KafkaSender{Pub: p, From: cfg.MailFrom}
	} else {
		l.Warn("kafka_disabled", "reason", "NOTIFY_LOG_ONLY is set, OTP codes and magic links are not delivered")
		m.sender = notify.LogSender{}
	}

	if cfg.ESURL != "" {
		idx, err := events.NewIndexer(events.ESConfig{
			URL:         cfg.ESURL,
			User:        cfg.ESUser,
			Password:    cfg.ESPassword,
			IndexPrefix: "snapbuy-" + cfg.ServiceName + "-",
		})
		if err != nil {
			l.Error("elasticsearch_disabled", "error", err)
		} else {
			sinks = append(sinks, idx)
		}
	}

	if len(sinks) == 0 {
		m.events = events.Log{}
	} else {
		m.events = sinks
	}
	return m
}

func openDB(cfg config.Config) *gorm.DB {
	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := repo.New(gdb).Migrate(initCtx); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}
	return gdb
}

func main() {
	pkgconfig.LoadDotEnv()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	gdb := openDB(cfg)
	store := repo.New(gdb)

	signer, err := tokens.NewSigner(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		log.Fatalf("jwt init error: %v", err)
	}

	msg := setupMessaging(cfg, logger)
	publisher := events.NewAsync(msg.events)

	ledger := &service.RefreshLedger{
		Users: store.Users,
		Store: store.RefreshTokens,
		TTL:   cfg.RefreshTokenTTL,
	}
	otp := &service.OTPVerifier{
		Users:       store.Users,
		Store:       store.Otps,
		Sender:      msg.sender,
		Events:      publisher,
		Length:      cfg.OtpLength,
		TTL:         cfg.OtpTTL,
		CountryCode: cfg.OtpCountryCode,
	}
	ott := &service.MagicLinkIssuer{
		Users:   store.Users,
		Store:   store.OneTimeTokens,
		Sender:  msg.sender,
		Pairs:   &service.PairIssuer{Signer: signer, Ledger: ledger},
		Events:  publisher,
		TTL:     cfg.OttTTL,
		BaseURL: cfg.AppBaseURL,
	}
	auth := &service.AuthService{
		Users:       store.Users,
		Signer:      signer,
		Ledger:      ledger,
		OTP:         otp,
		Events:      publisher,
		AdminKey:    cfg.AdminSignupKey,
		RotateOnUse: cfg.RefreshRotateOnUse,
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Secure())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: auth},
		OtpHandler:  &httpserver.OtpHTTP{Svc: otp},
		OttHandler:  &httpserver.OttHTTP{Svc: ott},
		Gatekeeper:  middleware.NewGatekeeper(signer, store.Users),
		DB:          gdb,
	})

	bgCtx, stopBackground := context.WithCancel(logging.IntoContext(context.Background(), logger))
	go otp.RunCleanup(bgCtx, cfg.OtpCleanupInterval)

	go func() {
		logger.Info("server_starting", "addr", cfg.Addr())
		if err := e.Start(cfg.Addr()); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	stopBackground()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_failed", "error", err)
	}

	publisher.Wait()
	if msg.producer != nil {
		if err := msg.producer.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_failed", "error", err)
	}
	logger.Info("server_stopped")
}
