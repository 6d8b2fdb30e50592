package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"royal-collector/internal/adapters/http/middleware"
	"royal-collector/internal/adapters/http/routes"
	"royal-collector/internal/adapters/notify"
	"royal-collector/internal/adapters/persistence/repositories"
	"royal-collector/internal/config"
	"royal-collector/internal/core/services"
	"royal-collector/internal/pkg/lock"
	"royal-collector/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "royal-collector/docs" // Swagger docs
)

// @title Royal Collector API
// @version 1.0
// @description Money-lending case ledger: cases, payments, reversals and borrower alerts.

// @contact.name API Support
// @contact.email support@royalcollector.in

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.AppMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	// Connect to database
	db, err := config.ConnectDatabase(cfg, zlog)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := config.CloseDatabase(); err != nil {
			zlog.Warn("close database", zap.Error(err))
		}
	}()

	// Migrate and bootstrap the admin account
	if err := config.NewSeeder(db, cfg.Seed, zlog).Run(); err != nil {
		return fmt.Errorf("seed database: %w", err)
	}

	locker, closeLocker := newLocker(cfg, zlog)
	defer closeLocker()

	sink, closeSink := newAlertSink(cfg, zlog)
	defer closeSink()

	timeout := cfg.Database.QueryTimeout
	store := repositories.NewStore(db)

	alertService := services.NewAlertService(store, sink, zlog.Named("alerts"), timeout)
	svc := routes.Services{
		Auth:      services.NewAuthService(store.Users, cfg.JWT, zlog.Named("auth")),
		Users:     services.NewUserService(store.Users, zlog.Named("users")),
		Cases:     services.NewCaseService(store, locker, alertService, zlog.Named("cases"), timeout),
		Ledger:    services.NewLedgerService(store, alertService, zlog.Named("ledger"), timeout),
		Alerts:    alertService,
		Dashboard: services.NewDashboardService(db, timeout),
	}
	defer alertService.Wait()

	// Reminder and dispatch jobs
	if cfg.Cron.Enabled {
		cronService := services.NewCronService(alertService, cfg.Cron.ReminderSpec, cfg.Cron.DispatchSpec, zlog.Named("cron"))
		if err := cronService.Start(); err != nil {
			return fmt.Errorf("start cron: %w", err)
		}
		defer cronService.Stop()
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Royal Collector API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, cfg, svc, config.HealthCheck)

	// Graceful shutdown
	go gracefulShutdown(app, zlog)

	// Start server
	zlog.Info("🚀 Server starting", zap.String("port", cfg.Port), zap.String("mode", cfg.AppMode))
	return app.Listen(":" + cfg.Port)
}

// newLocker returns the RedLock locker when Redis is configured, else the in-process one
func newLocker(cfg *config.Config, zlog *zap.Logger) (lock.Locker, func()) {
	if cfg.Redis.Addr == "" {
		zlog.Info("using in-process borrower locks")
		return lock.NewLocalLocker(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	opts := lock.DefaultOptions()
	opts.Expiry = cfg.Redis.LockExpiry

	zlog.Info("using redis borrower locks", zap.String("addr", cfg.Redis.Addr))
	return lock.NewRedisLocker(client, opts, zlog.Named("lock")), func() {
		if err := client.Close(); err != nil {
			zlog.Warn("close redis", zap.Error(err))
		}
	}
}

// newAlertSink wires the configured delivery channels behind circuit breakers
func newAlertSink(cfg *config.Config, zlog *zap.Logger) (services.AlertSink, func()) {
	var sinks notify.Fanout
	closeFn := func() {}

	if cfg.Notify.WebhookToken != "" || cfg.Notify.WebhookURL != "" {
		webhook := notify.NewWebhookSink(cfg.Notify.WebhookURL, cfg.Notify.WebhookToken, 0)
		sinks = append(sinks, notify.WithBreaker(webhook, notify.DefaultBreakerSettings(), zlog))
	}

	if cfg.Notify.AMQPURL != "" {
		amqpSink, err := notify.NewAMQPSink(cfg.Notify.AMQPURL, cfg.Notify.AMQPQueue)
		if err != nil {
			zlog.Warn("amqp sink disabled", zap.Error(err))
		} else {
			sinks = append(sinks, notify.WithBreaker(amqpSink, notify.DefaultBreakerSettings(), zlog))
			closeFn = func() {
				if err := amqpSink.Close(); err != nil {
					zlog.Warn("close amqp", zap.Error(err))
				}
			}
		}
	}

	if len(sinks) == 0 {
		zlog.Info("no alert channel configured, alerts are logged only")
		return notify.NewLogSink(zlog.Named("alerts")), closeFn
	}
	return sinks, closeFn
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, zlog *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
	zlog.Info("✅ Server stopped gracefully")
}
