package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vehicle_inspection_backend/internal/adapters"
	"vehicle_inspection_backend/internal/appointments"
	"vehicle_inspection_backend/internal/audit"
	"vehicle_inspection_backend/internal/auth"
	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/internal/inspections"
	"vehicle_inspection_backend/internal/notification"
	"vehicle_inspection_backend/internal/notification/channel"
	"vehicle_inspection_backend/internal/notification/outbox"
	"vehicle_inspection_backend/internal/payments"
	"vehicle_inspection_backend/internal/scheduler"
	"vehicle_inspection_backend/platform/config"
	"vehicle_inspection_backend/platform/db"
	"vehicle_inspection_backend/platform/logger"
	"vehicle_inspection_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// Worker-side lifecycle wiring (no HTTP handlers required).
	authModule := auth.NewModule(pool, cfg, val, eventBus, log)
	paymentsModule := payments.NewModule(pool, val, eventBus, log)
	appointmentsModule := appointments.NewModule(pool, cfg, val, adapters.NewPaymentLedgerAdapter(paymentsModule.Service), eventBus, log)
	inspectionsModule := inspections.NewModule(
		pool, val,
		adapters.NewAppointmentGatewayAdapter(appointmentsModule.Service),
		adapters.NewPaymentStatusAdapter(paymentsModule.Service),
		eventBus, log, cfg.GetVerifyTimeout(),
	)
	appointmentsModule.Service.SetInspectionReader(adapters.NewInspectionReaderAdapter(inspectionsModule.Service))
	inspectionsModule.Service.SetContactReader(adapters.NewContactNameAdapter(authModule.Service()))
	reconciler := adapters.NewLifecycleReconciler(appointmentsModule.Service, inspectionsModule.Service)

	notificationModule, err := notification.New(
		pool,
		channel.NewEmailSender(cfg, log),
		channel.NewSMSSender(cfg, log),
		authModule.Service(),
		notification.Config{Location: cfg.GetScheduleLocation(), PhoneRegion: cfg.GetPhoneDefaultRegion()},
		log,
	)
	if err != nil {
		log.Error("failed to initialize notification module", "error", err)
		panic("failed to initialize notification module: " + err.Error())
	}
	defer notificationModule.Close()
	notificationModule.RegisterHandlers(eventBus)

	auditModule, err := audit.NewModule(pool, cfg, val, log)
	if err != nil {
		log.Error("failed to initialize audit module", "error", err)
		panic("failed to initialize audit module: " + err.Error())
	}
	defer func() { _ = auditModule.Close() }()
	auditModule.RegisterHandlers(eventBus)

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, outbox.New(pool), log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()

	worker, err := scheduler.NewWorker(cfg, appointmentsModule.Service, reconciler, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	sweep := scheduler.NewLifecycleSweep(reconciler, log, cfg.GetReconcileInterval())
	cleanup := scheduler.NewAuditCleanup(auditModule.Service, log, getDurationEnv("AUDIT_CLEANUP_INTERVAL", 6*time.Hour))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return auditModule.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return sweep.Run(gctx) })
	g.Go(func() error { return cleanup.Run(gctx) })
	g.Go(func() error { return worker.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("scheduler stopped with error", "error", err)
	}
	eventBus.Wait()
	log.Info("scheduler stopped")
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

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
