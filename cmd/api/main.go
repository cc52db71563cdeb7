package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/farm2home/internal/api"
	"github.com/example/farm2home/internal/api/middleware"
	"github.com/example/farm2home/internal/auth"
	"github.com/example/farm2home/internal/command"
	"github.com/example/farm2home/internal/config"
	"github.com/example/farm2home/internal/domain/catalog"
	"github.com/example/farm2home/internal/domain/order"
	"github.com/example/farm2home/internal/domain/pricing"
	"github.com/example/farm2home/internal/infrastructure/kafka"
	"github.com/example/farm2home/internal/infrastructure/logger"
	"github.com/example/farm2home/internal/metrics"
	"github.com/example/farm2home/internal/query"
	"github.com/example/farm2home/internal/session"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return err
	}
	defer log.Sync()
	log = log.Named("api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info("storage ready", zap.String("driver", cfg.Storage.Driver))

	var publisher order.Publisher = order.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()
		publisher = producer
		log.Info("publishing order events",
			zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	var products catalog.Listing
	if cfg.Catalog.BaseURL != "" {
		products = catalog.NewHTTPCatalog(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)
		log.Info("using product service", zap.String("url", cfg.Catalog.BaseURL))
	} else {
		products, err = catalog.OpenStoreCatalog(ctx, store, catalog.Seed(), log)
		if err != nil {
			return err
		}
		log.Info("using built-in catalog")
	}

	engine := &pricing.Engine{ShippingFee: cfg.Pricing.ShippingFee, TaxRate: cfg.Pricing.TaxRate}
	m := metrics.New()
	tokens := auth.NewTokenService(cfg.Session.Secret, cfg.Session.TTL)

	sessions, err := session.NewManager(session.Config{
		Store:     store,
		Catalog:   products,
		Pricing:   engine,
		Publisher: publisher,
		IdleTTL:   cfg.Session.TTL,
		Metrics:   m,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	cmdHandler := command.NewHandler(sessions, m, log)
	queryHandler := query.NewHandler(sessions, engine)
	secure := cfg.IsProduction()

	var limiter *middleware.RateLimiter
	if cfg.HTTP.PlaceOrderRate > 0 {
		limiter = middleware.NewRateLimiter(cfg.HTTP.PlaceOrderRate, cfg.HTTP.PlaceOrderBurst)
	}

	router := api.NewRouter(api.RouterConfig{
		Handlers:          api.NewHandlers(cmdHandler, queryHandler, tokens, secure, log),
		Products:          api.NewProductHandlers(products, log),
		Tokens:            tokens,
		Metrics:           m,
		PlaceOrderLimiter: limiter,
		SecureCookie:      secure,
		Logger:            log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", server.Addr), zap.String("env", cfg.App.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
