/**
 * @description
 * This is the main entry point for the ai-billing-server. It wires together
 * configuration, the database pool, the optional Redis and RabbitMQ clients,
 * the accrual service, and the HTTP router, then runs the server until a
 * shutdown signal arrives.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/deepak6600/ai-billing-server/internal/api"
	"github.com/deepak6600/ai-billing-server/internal/app"
	"github.com/deepak6600/ai-billing-server/internal/config"
	"github.com/deepak6600/ai-billing-server/internal/plans"
	"github.com/deepak6600/ai-billing-server/internal/store"
	"github.com/deepak6600/ai-billing-server/pkg/rabbitmq"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.RazorpayWebhookSecret == "" {
		logger.Error("RAZORPAY_WEBHOOK_SECRET is not set")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Establish connection to the PostgreSQL database
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// Redis is optional: without it the service still dedupes via Postgres.
	var deduper app.PaymentDeduper
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("unable to parse redis URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		deduper = app.NewRedisPaymentDeduper(
			redisClient,
			cfg.RedisDedupePrefix,
			time.Duration(cfg.PaymentDedupeTTLMinutes)*time.Minute,
		)
		logger.Info("redis payment dedupe enabled")
	}

	// RabbitMQ is optional: without it quota.credited events are not emitted.
	var publisher app.EventPublisher
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			logger.Error("unable to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		publisher = producer
		logger.Info("quota event publishing enabled", "exchange", cfg.QuotaEventExchange)
	}

	// Initialize application layers
	repository := store.NewPostgresRepository(dbpool)
	service := app.NewService(
		repository,
		plans.Default(),
		deduper,
		publisher,
		cfg.QuotaEventExchange,
		time.Duration(cfg.StoreTimeoutSeconds)*time.Second,
	)
	handler := api.NewHandler(service, cfg.RazorpayWebhookSecret)
	router := api.NewRouter(handler, cfg.ClerkJWKSURL)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
