package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/booking/internal/config"
	"example.com/booking/internal/logging"
	"example.com/booking/internal/outbox"
	httptransport "example.com/booking/internal/transport/http"
)

const dlqBatchSize = 50

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "booking-dlqmanager: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.Setup(cfg.LogLevel, cfg.LogJSON, "booking-dlqmanager")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	metricsSrv := httptransport.NewServer(httptransport.ServerConfig{Address: cfg.MetricsAddress}, promhttp.Handler())
	go func() {
		if err := httptransport.Serve(ctx, metricsSrv, 10*time.Second, logger); err != nil {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	manager := outbox.NewDLQManager(pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay, logger)
	logger.Info().
		Dur("interval", cfg.DLQPollInterval).
		Int("max_retries", cfg.DLQMaxRetries).
		Msg("dlq manager started")

	if err := manager.Run(ctx, cfg.DLQPollInterval, dlqBatchSize); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("dlq manager stopped")
	return nil
}
