package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vehicle_inspection_backend/internal/audit/mq"
	"vehicle_inspection_backend/internal/audit/repository"
	"vehicle_inspection_backend/platform/config"
	"vehicle_inspection_backend/platform/db"
	"vehicle_inspection_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// audit-consumer moves audit entries from the broker queue into Postgres.
// It is only needed when AUDIT_SINK publishes to RabbitMQ.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting audit consumer", "env", cfg.Env, "queue", cfg.GetAuditQueue())

	if cfg.GetAMQPURL() == "" {
		log.Error("AMQP_URL not configured; nothing to consume")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	var consumer *mq.Consumer
	if err := withRetry(ctx, log, "rabbitmq connection", 5, 2*time.Second, func() error {
		c, err := mq.NewConsumer(cfg.GetAMQPURL(), cfg.GetAuditExchange(), cfg.GetAuditQueue(), log)
		if err != nil {
			return err
		}
		consumer = c
		return nil
	}); err != nil {
		log.Error("failed to connect to rabbitmq", "error", err)
		panic("failed to connect to rabbitmq: " + err.Error())
	}
	defer func() { _ = consumer.Close() }()

	if err := consumer.Run(ctx, repository.New(pool)); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("audit consumer stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("audit consumer stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
