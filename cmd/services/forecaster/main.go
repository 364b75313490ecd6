package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soltixdb/seasoncast/internal/config"
	"github.com/soltixdb/seasoncast/internal/jobs"
	"github.com/soltixdb/seasoncast/internal/logging"
	"github.com/soltixdb/seasoncast/internal/metrics"
	"github.com/soltixdb/seasoncast/internal/queue"
	"github.com/soltixdb/seasoncast/internal/router"
	"github.com/soltixdb/seasoncast/internal/services"
	"github.com/soltixdb/seasoncast/internal/subscriber"
	"github.com/soltixdb/seasoncast/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Forecast service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	if cfg.IsDevelopment() {
		logger.Debug("Effective forecast configuration",
			"horizon", cfg.Forecast.Horizon,
			"confidence", cfg.Forecast.Confidence,
			"trials", cfg.Forecast.Trials,
			"trend", cfg.Forecast.Trend,
			"seasonal", cfg.Forecast.Seasonal,
			"shock_detector", cfg.Forecast.ShockDetector)
	}

	logger.Info("Connecting result publisher", "type", cfg.Publisher.Type, "url", cfg.Publisher.URL)
	publisher, err := queue.NewPublisher(cfg.Publisher)
	if err != nil {
		logger.Fatal("Failed to create publisher", "error", err)
	}
	defer func() { _ = publisher.Close() }()

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	m := metrics.New()
	service := services.NewForecastService(logger,
		services.WithMetrics(m),
		services.WithPublisher(publisher, cfg.Publisher.Subject),
		services.WithModelCache(cfg.Forecast.CacheSize),
	)

	app, err := router.New(logger, service, m, *cfg)
	if err != nil {
		logger.Fatal("Failed to build router", "error", err)
	}

	jobsCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()
	if cfg.Jobs.Enabled {
		sub, err := startJobs(jobsCtx, logger, cfg, service, publisher, m)
		if err != nil {
			logger.Fatal("Failed to start job consumer", "error", err)
		}
		defer func() { _ = sub.Close() }()
	}

	go func() {
		addr := cfg.Server.Address()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopJobs()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

// startJobs consumes forecast requests from the publisher's broker
func startJobs(ctx context.Context, logger *logging.Logger, cfg *config.Config, service *services.ForecastService,
	publisher queue.Publisher, m *metrics.Metrics) (subscriber.Subscriber, error) {
	defaults, err := services.RunConfigFromConfig(cfg.Forecast)
	if err != nil {
		return nil, err
	}
	sub, err := subscriber.NewSubscriber(cfg.Publisher, cfg.Jobs, publisher)
	if err != nil {
		return nil, err
	}
	worker := jobs.NewWorker(logger, service, defaults, publisher, cfg.Publisher.Subject, m)
	if err := worker.Start(ctx, sub); err != nil {
		_ = sub.Close()
		return nil, err
	}
	return sub, nil
}
