package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-faktur/internal/activity"
	"github.com/noah-isme/backend-faktur/internal/cache"
	"github.com/noah-isme/backend-faktur/internal/common"
	"github.com/noah-isme/backend-faktur/internal/config"
	"github.com/noah-isme/backend-faktur/internal/dispatch"
	"github.com/noah-isme/backend-faktur/internal/document"
	"github.com/noah-isme/backend-faktur/internal/events"
	"github.com/noah-isme/backend-faktur/internal/lock"
	"github.com/noah-isme/backend-faktur/internal/notify"
	"github.com/noah-isme/backend-faktur/internal/obs"
	"github.com/noah-isme/backend-faktur/internal/reminder"
	"github.com/noah-isme/backend-faktur/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "faktur"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	emailQueue := dispatch.Enqueuer{
		R:           redisClient,
		DedupTTL:    cfg.IdempotencyTTL,
		MaxAttempts: cfg.EmailMaxAttempts,
	}
	// Same bus shape as the API minus the reminder scheduler: this process
	// consumes reminder tasks, it must not book new ones for its own emits.
	bus := &events.Bus{
		Store:     &events.PGStore{Pool: pool},
		Scheduler: notify.EmailScheduler{Queue: emailQueue, Enabled: cfg.EmailEnabled, MaxAttempts: cfg.EmailMaxAttempts},
		Notifiers: []events.Notifier{
			activity.Recorder{Store: &activity.PGStore{Pool: pool}, Enabled: true},
			cache.Invalidator{R: redisClient},
		},
	}

	var mail common.EmailSender = common.LogEmailSender{From: cfg.EmailFrom, Logger: &logger}
	if cfg.EmailRelayURL != "" {
		mail = common.HTTPEmailSender{
			Endpoint: cfg.EmailRelayURL,
			From:     cfg.EmailFrom,
			APIKey:   cfg.EmailRelayAPIKey,
			Client:   common.NewRelayClient(cfg.EmailRelayTimeout),
		}
	}
	deliverer := &notify.Deliverer{
		Mail:    mail,
		Breaker: resilience.NewBreaker(cfg.CircuitMailMinRequests, cfg.CircuitMailFailureRate, cfg.CircuitMailOpenFor),
	}
	emailWorker := dispatch.Worker{
		R:           redisClient,
		Kind:        notify.KindEmailDelivery,
		Concurrency: cfg.WorkerConcurrency,
		Store:       dispatch.NewStore(pool),
		Logger:      &logger,
		Handler:     deliverer.Handle,
	}

	documentSvc := &document.Service{Q: &document.PGStore{Pool: pool}}
	reminderStore := &reminder.PGStore{Pool: pool}
	reminderHandler := &reminder.Handler{
		Docs:   documentSvc,
		Store:  reminderStore,
		Bus:    bus,
		Logger: &logger,
	}
	scanner := &reminder.Scanner{
		Store:    reminderStore,
		Bus:      bus,
		Locker:   lock.Locker{R: redisClient, Retry: cfg.LockRetryBackoff},
		LockTTL:  cfg.LockTTL,
		Lead:     cfg.ReminderLead,
		Interval: cfg.ReminderScanInterval,
		Logger:   &logger,
	}

	taskConn, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task server")
	}
	taskServer := asynq.NewServer(taskConn, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues: map[string]int{
			reminder.QueueName: 2,
			"default":          1,
		},
	})
	mux := asynq.NewServeMux()
	mux.Handle(reminder.TaskPaymentDue, reminderHandler)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := emailWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("email worker stopped with error")
		}
	}()
	if cfg.RemindersEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := scanner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("reminder scanner stopped with error")
			}
		}()
	}

	if err := taskServer.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}

	logger.Info().Msg("worker started")
	<-ctx.Done()
	taskServer.Shutdown()
	wg.Wait()
	logger.Info().Msg("worker shutdown complete")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "faktur-worker"
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
