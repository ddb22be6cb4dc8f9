package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"example.com/booking/internal/api"
	"example.com/booking/internal/auth"
	"example.com/booking/internal/config"
	"example.com/booking/internal/domain"
	"example.com/booking/internal/logging"
	"example.com/booking/internal/outbox"
	"example.com/booking/internal/persistence/memory"
	persistence "example.com/booking/internal/persistence/postgres"
	"example.com/booking/internal/ratelimit"
	httptransport "example.com/booking/internal/transport/http"
)

// backend is satisfied by both storage implementations.
type backend interface {
	domain.EnrollmentStore
	domain.CatalogStore
	domain.AccountStore
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "booking-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.Setup(cfg.LogLevel, cfg.LogJSON, "booking-api")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store      backend
		dispatcher *outbox.Dispatcher
	)
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
		store = memory.NewStore()
	default:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		repo := persistence.NewRepository(pool)
		if err := repo.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		store = repo

		if cfg.OutboxEnabled {
			producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
			defer producer.Close()
			prometheus.MustRegister(producer)

			registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
			dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
				outbox.WithLogger(logger.With().Str("component", "outbox").Logger()))
			go dispatcher.Start(ctx)
		}
	}

	authCfg := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.JWTTTL}
	ledger := domain.NewLedger(store,
		domain.WithLedgerLogger(logger.With().Str("component", "ledger").Logger()),
		domain.WithUnitTimeout(cfg.EnrollTimeout),
	)
	catalog := domain.NewCatalog(store)
	accounts := domain.NewAccounts(store, auth.BcryptHasher{Cost: auth.PasswordCost}, auth.NewSigner(authCfg))

	handler := api.NewHandler(ledger, catalog, accounts, api.WithLogger(logger))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	limiter := ratelimit.NewStore(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.StartJanitor(ctx)
	limitOpts := ratelimit.Options{Store: limiter, Logger: logger}
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, rate-limit stats may be incomplete")
		}
		limitOpts.Stats = ratelimit.NewRedisStats(rdb, "booking:ratelimit", 24*time.Hour)
	}

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, httptransport.Chain(mux,
		logging.Middleware(logger),
		httptransport.CORS(cfg.CORSOrigin),
		auth.NewMiddleware(authCfg, api.IsPublic).Wrap,
		ratelimit.Middleware(limitOpts),
	))

	err = httptransport.Serve(ctx, server, 15*time.Second, logger)
	stop()
	if dispatcher != nil {
		dispatcher.Wait()
	}
	logShutdown(logger, err)
	return err
}

func logShutdown(logger zerolog.Logger, err error) {
	if err != nil {
		logger.Error().Err(err).Msg("server stopped")
		return
	}
	logger.Info().Msg("server stopped")
}
