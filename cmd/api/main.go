package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"luxe-store/internal/cart"
	"luxe-store/internal/checkout"
	"luxe-store/internal/config"
	"luxe-store/internal/database"
	"luxe-store/internal/events"
	"luxe-store/internal/handler"
	"luxe-store/internal/payment"
	"luxe-store/internal/reconcile"
	"luxe-store/internal/repository"
	"luxe-store/internal/router"
	"luxe-store/internal/service"
	"luxe-store/internal/telemetry"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting luxe-store API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracer(flushCtx); err != nil {
			logger.Error().Err(err).Msg("failed to flush traces")
		}
	}()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Cart.Backend == config.BackendRedis || cfg.Checkout.GuardBackend == config.BackendRedis {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		defer redisClient.Close()
	}

	cartStorage, err := newCartStorage(cfg.Cart, redisClient)
	if err != nil {
		return fmt.Errorf("failed to initialize cart storage: %w", err)
	}
	guard := newGuard(cfg.Checkout, redisClient, logger)

	publisher := newPublisher(cfg.Kafka, logger)
	defer publisher.Close()

	// Repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	// Services
	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(orderRepo, publisher, logger)

	// Payments
	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey, nil, logger)
	verifier := payment.NewStripeVerifier(cfg.Stripe.WebhookSecret)
	orchestrator := checkout.NewOrchestrator(gateway, orderService, guard, cfg.Stripe.Currency, logger)
	reconciler := reconcile.NewReconciler(verifier, orderService, publisher, logger)

	mux := router.New(router.Handlers{
		Product:  handler.NewProductHandler(productService, logger),
		Order:    handler.NewOrderHandler(orderService, logger),
		Cart:     handler.NewCartHandler(cartStorage, productService, logger),
		Checkout: handler.NewCheckoutHandler(orchestrator, cartStorage, logger),
		Payment:  handler.NewPaymentHandler(gateway, reconciler, cfg.Stripe.Currency, logger),
	}, cfg.Auth.APIKey, logger)

	server := &http.Server{
		Addr:        cfg.Server.Address(),
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// Checkout waits on the payment processor.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

func newCartStorage(cfg config.CartConfig, client *redis.Client) (cart.Storage, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return cart.NewFileStorage(cfg.Dir)
	case config.BackendRedis:
		return cart.NewRedisStorage(client, cfg.TTL), nil
	default:
		return cart.NewMemoryStorage(), nil
	}
}

func newGuard(cfg config.CheckoutConfig, client *redis.Client, logger zerolog.Logger) checkout.Guard {
	if cfg.GuardBackend == config.BackendRedis {
		return checkout.NewRedisGuard(client, cfg.LockTTL, logger)
	}
	return checkout.NewMemoryGuard()
}

func newPublisher(cfg config.KafkaConfig, logger zerolog.Logger) events.Publisher {
	if !cfg.Enabled {
		logger.Info().Msg("event publishing disabled")
		return events.NewNopPublisher()
	}
	return events.NewKafkaPublisher(cfg.Brokers, events.Topics{
		Orders:   cfg.OrdersTopic,
		Payments: cfg.PaymentsTopic,
	}, logger)
}
