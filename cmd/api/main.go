// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/carterperez-dev/oneclick-server/internal/admin"
	"github.com/carterperez-dev/oneclick-server/internal/auth"
	"github.com/carterperez-dev/oneclick-server/internal/billing"
	"github.com/carterperez-dev/oneclick-server/internal/config"
	"github.com/carterperez-dev/oneclick-server/internal/core"
	"github.com/carterperez-dev/oneclick-server/internal/entitlement"
	"github.com/carterperez-dev/oneclick-server/internal/generate"
	"github.com/carterperez-dev/oneclick-server/internal/health"
	"github.com/carterperez-dev/oneclick-server/internal/middleware"
	"github.com/carterperez-dev/oneclick-server/internal/server"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	envFile := flag.String("env-file", ".env", "path to optional .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"llm_provider", cfg.LLM.Provider,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg.Database.URL); err != nil {
			return err
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis client configured",
		"pool_size", cfg.Redis.PoolSize,
	)

	entitlementRepo := entitlement.NewRepository(db.DB)
	entitlementSvc := entitlement.NewService(entitlementRepo, cfg.Store.Timeout)
	entitlementHandler := entitlement.NewHandler(entitlementSvc)

	eventRepo := billing.NewEventRepository(db.DB)
	checkoutSvc := billing.NewCheckoutService(
		billing.NewStripeProvider(cfg.Stripe, cfg.App.SuccessURL(), cfg.App.CancelURL()),
		cfg.Stripe.Timeout,
	)
	webhookSvc := billing.NewWebhookService(
		billing.NewStripeVerifier(cfg.Stripe.WebhookSecret),
		eventRepo,
		entitlementSvc,
		cfg.Store.Timeout,
	)
	billingHandler := billing.NewHandler(checkoutSvc, webhookSvc)

	reconciler := billing.NewReconciler(webhookSvc, eventRepo, cfg.Reconcile, cfg.Store.Timeout)
	if err := reconciler.Start(ctx); err != nil {
		return err
	}

	generateSvc := generate.NewService(generate.NewChatClient(cfg.LLM), cfg.LLM.Timeout)
	generateHandler := generate.NewHandler(generateSvc)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis, Optional: true},
	)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer(logger))
	router.Use(
		middleware.NewRateLimiter(ctx, redis.Client, middleware.RateLimitConfig{
			Limit:      middleware.PublicLimit(cfg.RateLimit),
			FailOpen:   true,
			BypassFunc: middleware.BypassWebhook,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)
	entitlementHandler.RegisterRoutes(router)
	billingHandler.RegisterRoutes(router)

	generateLimiter := middleware.NewRateLimiter(ctx, redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.GenerateLimit(cfg.RateLimit),
		KeyFunc:  middleware.KeyByIPAndEndpoint,
		FailOpen: true,
	})
	generateHandler.RegisterRoutes(router.With(generateLimiter.Handler))

	if cfg.AdminEnabled() {
		jwtManager, jwtErr := auth.NewJWTManager(cfg.JWT)
		if jwtErr != nil {
			return jwtErr
		}
		logger.Info("admin token verification enabled",
			"algorithm", "ES256",
			"key_id", jwtManager.GetKeyID(),
		)

		adminHandler := admin.NewHandler(admin.HandlerConfig{
			DBStats:    db.Stats,
			RedisStats: redis.PoolStats,
			DBPing:     db.Ping,
			RedisPing:  redis.Ping,
			Events:     reconciler,
		})

		router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())
		router.Route("/v1", func(r chi.Router) {
			adminHandler.RegisterRoutes(
				r,
				middleware.Authenticator(jwtManager),
				middleware.RequireAdmin,
			)
		})
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	reconciler.Stop(shutdownCtx)

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func migrateUp(databaseURL string) error {
	migrator, err := core.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("migrator close error", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return err
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	slog.Info("database migrated", "version", version, "dirty", dirty)

	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
