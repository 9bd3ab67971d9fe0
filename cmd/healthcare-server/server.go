package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/olawuwo-abideen/healthcare/internal/config"
	"github.com/olawuwo-abideen/healthcare/internal/domain/admin"
	"github.com/olawuwo-abideen/healthcare/internal/domain/billing"
	"github.com/olawuwo-abideen/healthcare/internal/domain/clinical"
	"github.com/olawuwo-abideen/healthcare/internal/domain/identity"
	"github.com/olawuwo-abideen/healthcare/internal/domain/review"
	"github.com/olawuwo-abideen/healthcare/internal/domain/scheduling"
	"github.com/olawuwo-abideen/healthcare/internal/platform/auth"
	"github.com/olawuwo-abideen/healthcare/internal/platform/blobstore"
	"github.com/olawuwo-abideen/healthcare/internal/platform/db"
	"github.com/olawuwo-abideen/healthcare/internal/platform/middleware"
	"github.com/olawuwo-abideen/healthcare/internal/platform/notification"
	"github.com/olawuwo-abideen/healthcare/internal/platform/payment"
	"github.com/olawuwo-abideen/healthcare/internal/platform/telemetry"
	"github.com/olawuwo-abideen/healthcare/internal/platform/validate"
	"github.com/olawuwo-abideen/healthcare/pkg/apperror"
)

const uploadBodyLimit = "12M"

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Adapters
	revoked, closeRevoked, err := newRevocationStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up token revocation")
	}
	defer closeRevoked()

	uploads, err := newUploadStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up file uploads")
	}

	metrics := telemetry.NewMetrics("healthcare")
	notifier := notification.NewNotifier(newEmailSender(cfg, logger), logger, metrics)
	gateway := newPaymentGateway(cfg, logger)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn, cfg.ResetTokenExpiresIn)

	// Domains
	userRepo := identity.NewUserRepoPG(pool)
	identitySvc := identity.NewService(userRepo, tokens, revoked, notifier, cfg.ResetPasswordURL, logger)
	billingSvc := billing.NewService(billing.NewTransactionRepoPG(pool))
	apptRepo := scheduling.NewAppointmentRepoPG(pool)
	slotSvc := scheduling.NewService(scheduling.NewSlotRepoPG(pool), apptRepo)
	bookingSvc := scheduling.NewBookingService(scheduling.BookingDeps{
		Tx:       db.NewTxManager(pool),
		Slots:    slotSvc,
		Appts:    apptRepo,
		Ledger:   billingSvc,
		Gateway:  gateway,
		Users:    identitySvc,
		Notifier: notifier,
		Observer: metrics,
		Currency: cfg.PaymentCurrency,
		Logger:   logger,
	})
	clinicalSvc := clinical.NewService(clinical.NewPrescriptionRepoPG(pool), clinical.NewMedicalRecordRepoPG(pool), identitySvc)
	reviewSvc := review.NewService(review.NewReviewRepoPG(pool), identitySvc)
	adminSvc := admin.NewService(userRepo, logger)

	routes := [][]auth.Route{
		identity.NewHandler(identitySvc, uploads).Routes(),
		scheduling.NewHandler(slotSvc, bookingSvc).Routes(),
		clinical.NewHandler(clinicalSvc, uploads).Routes(),
		review.NewHandler(reviewSvc).Routes(),
		billing.NewHandler(billingSvc).Routes(),
		admin.NewHandler(adminSvc).Routes(),
	}

	e := newEcho(cfg, logger, metrics)
	e.GET("/health/db", db.HealthHandler(pool))

	router := auth.NewRouter(auth.Authenticate(tokens, identitySvc, revoked))
	api := e.Group("")
	for _, r := range routes {
		router.Mount(api, r)
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newEcho builds the HTTP server with the global middleware chain and the
// unauthenticated operational endpoints.
func newEcho(cfg *config.Config, logger zerolog.Logger, metrics *telemetry.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(logger)
	e.Validator = validate.New()

	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	rl.Skipper = func(c echo.Context) bool {
		p := c.Path()
		return p == "/health" || p == "/health/db" || p == "/metrics"
	}

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit, uploadBodyLimit))
	e.Use(middleware.RateLimit(rl))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", metrics.Handler())
	return e
}

// newRevocationStore shares signed-out tokens through Redis when REDIS_URL is
// set, otherwise keeps them in process memory.
func newRevocationStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (auth.RevocationStore, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set; token revocation is per-process")
		mem := auth.NewMemoryRevocationStore()
		return mem, mem.Close, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return auth.NewRedisRevocationStore(client), func() { _ = client.Close() }, nil
}

func newEmailSender(cfg *config.Config, logger zerolog.Logger) notification.EmailSender {
	if !cfg.SMTPEnabled() {
		logger.Warn().Msg("SMTP_HOST not set; emails are logged instead of sent")
		return notification.NewLogSender(logger)
	}
	return notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}

func newUploadStore(cfg *config.Config, logger zerolog.Logger) (blobstore.Store, error) {
	if cfg.CloudinaryURL == "" {
		logger.Warn().Msg("CLOUDINARY_URL not set; uploads are kept in memory")
		return blobstore.NewInMemoryStore("http://localhost:" + cfg.Port + "/uploads"), nil
	}
	store, err := blobstore.NewCloudinaryStore(cfg.CloudinaryURL, cfg.UploadFolder)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newPaymentGateway(cfg *config.Config, logger zerolog.Logger) payment.Gateway {
	if !cfg.PaymentsEnabled() {
		logger.Warn().Msg("STRIPE_SECRET_KEY not set; using the fake payment gateway")
		return payment.NewFakeGateway()
	}
	return payment.NewStripeGateway(cfg.StripeSecretKey)
}
