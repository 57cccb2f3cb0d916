package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Vaanter/alphapack-ledger/internal/core/port"
	"github.com/Vaanter/alphapack-ledger/internal/infra/config"
	"github.com/Vaanter/alphapack-ledger/internal/infra/database"
	kafkainfra "github.com/Vaanter/alphapack-ledger/internal/infra/kafka"
	"github.com/Vaanter/alphapack-ledger/internal/infra/logger"
	redisinfra "github.com/Vaanter/alphapack-ledger/internal/infra/redis"
	"github.com/Vaanter/alphapack-ledger/internal/infra/runtime"
	"github.com/Vaanter/alphapack-ledger/internal/infra/telemetry"
	postgresrepo "github.com/Vaanter/alphapack-ledger/internal/repository/postgres"
	redisrepo "github.com/Vaanter/alphapack-ledger/internal/repository/redis"
	"github.com/Vaanter/alphapack-ledger/internal/transport/http/middleware"
	"github.com/Vaanter/alphapack-ledger/internal/transport/http/routes"
	"github.com/Vaanter/alphapack-ledger/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	provider, err := telemetry.Attach(nil)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	ledgerStore := redisrepo.NewLedgerRepository(redisClient.Client(), cfg.Redis.LedgerPrefix)
	counterStore := redisrepo.NewCounterRepository(redisClient.Client(), cfg.Redis.CounterPrefix)

	// The decision archive is optional; the admit path never reads it.
	var pool *pgxpool.Pool
	var archive port.DecisionArchive
	if cfg.Postgres.Enabled {
		pool, err = database.NewPostgresPool(ctx, cfg.Postgres, log)
		if err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		archive = postgresrepo.NewRepositories(pool).Decisions
	} else {
		log.Info("postgres disabled, decisions will not be archived")
	}

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	props := runtime.NewProperties()

	quota := usecase.NewQuotaTracker(counterStore, cfg.Quota.Window, cfg.Quota.Limit).
		WithLogger(log)

	ledgerService := usecase.NewLedgerService(ledgerStore, quota, usecase.LedgerOptions{
		RetentionPeriod: cfg.Ledger.RetentionPeriod,
		MaxTokenBytes:   cfg.Ledger.MaxTokenBytes,
	}).
		WithLogger(log).
		WithMetrics(provider).
		WithEvents(eventPublisher).
		WithToggles(props)
	if archive != nil {
		ledgerService.WithArchive(archive)
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "ledger:rate-limit",
		TTL:       rateLimitWindow * 2,
	})

	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	deps := routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Ledger:      ledgerService,
		Archive:     archive,
		Properties:  props,
		Telemetry:   provider,
		HTTPMetrics: httpMetrics,
		Cache:       redisClient,
	}
	if pool != nil {
		deps.Database = pool
	}

	engine := routes.Register(deps)

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting ledger API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
