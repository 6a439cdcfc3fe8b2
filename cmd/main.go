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

	"github.com/fjod/foodcart/internal/checkout"
	"github.com/fjod/foodcart/internal/config"
	h "github.com/fjod/foodcart/internal/http"
	"github.com/fjod/foodcart/internal/metrics"
	"github.com/fjod/foodcart/internal/poller"
	"github.com/fjod/foodcart/internal/pricing"
	"github.com/fjod/foodcart/internal/session"
	"github.com/fjod/foodcart/internal/storage"
	"github.com/fjod/foodcart/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("cart service failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	backend, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if c, ok := backend.(storage.Closer); ok {
		defer c.Close()
	}
	log.Info("cart storage ready", zap.String("driver", cfg.Storage.Driver))

	sessions := session.NewRegistry(backend,
		session.WithLogger(log),
		session.WithMetrics(m),
		session.WithFormatter(pricing.NewFormatter(cfg.CurrencySymbol)),
		session.WithStorageTimeout(cfg.StorageTimeout),
		session.WithIdleTTL(cfg.SessionIdleTTL),
		session.WithMaxSessions(cfg.MaxSessions))
	defer sessions.Close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sessions.Run(sweepCtx, cfg.SessionSweepInterval)

	var publisher checkout.Publisher = checkout.NewLogPublisher(log)
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := checkout.NewKafkaPublisher(cfg.CheckoutTopic, cfg.KafkaBrokers...)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher

		orders := poller.NewPoller(sessions, log, cfg.OrdersTopic, cfg.KafkaBrokers...)
		defer orders.Close()
		go orders.Run(consumerCtx)
		log.Info("kafka wired",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("checkout_topic", cfg.CheckoutTopic),
			zap.String("orders_topic", cfg.OrdersTopic))
	} else {
		log.Warn("KAFKA_BROKERS not set, checkout hand-offs are only logged")
	}

	handoff := checkout.NewHandoff(publisher, checkout.WithLogger(log), checkout.WithMetrics(m))

	router := h.NewRouter(h.RouterConfig{
		Cart:           h.NewCartHandler(sessions, cfg.RequestTimeout),
		Checkout:       h.NewCheckoutHandler(sessions, handoff, cfg.RequestTimeout),
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "cart-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("cart service listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	log.Info("shutting down cart service")
	stopConsumer()
	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("cart service stopped")
	return nil
}
