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

	"vehicle_inspection_backend/internal/adapters"
	"vehicle_inspection_backend/internal/adapters/storage"
	"vehicle_inspection_backend/internal/appointments"
	"vehicle_inspection_backend/internal/audit"
	"vehicle_inspection_backend/internal/auth"
	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/internal/files"
	filesvc "vehicle_inspection_backend/internal/files/service"
	apphttp "vehicle_inspection_backend/internal/http"
	"vehicle_inspection_backend/internal/http/router"
	"vehicle_inspection_backend/internal/inspections"
	"vehicle_inspection_backend/internal/notification"
	"vehicle_inspection_backend/internal/notification/channel"
	"vehicle_inspection_backend/internal/payments"
	"vehicle_inspection_backend/internal/scheduler"
	"vehicle_inspection_backend/migrations"
	"vehicle_inspection_backend/platform/config"
	"vehicle_inspection_backend/platform/db"
	"vehicle_inspection_backend/platform/logger"
	"vehicle_inspection_backend/platform/tracing"
	"vehicle_inspection_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const storageBucketEnsureErrPrefix = "failed to ensure storage bucket exists: "
const storageBucketEnsureErrMsg = "failed to ensure storage bucket exists"

// ensureBucket wraps the retry logic for verifying a MinIO bucket exists.
func ensureBucket(ctx context.Context, log *logger.Logger, store storage.ObjectStore, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return store.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error(storageBucketEnsureErrMsg, "error", err, "bucket", bucket)
		panic(storageBucketEnsureErrPrefix + err.Error())
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg, cfg.Env)
	if err != nil {
		log.Error("failed to initialize tracing", "error", err)
		panic("failed to initialize tracing: " + err.Error())
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	schedulerClient, closeScheduler := initSchedulerClient(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Storage service for inspection photos and certificates (MinIO)
	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	ensureBucket(ctx, log, storageSvc, "inspection-photos", cfg.GetMinioBucketInspectionPhotos())
	ensureBucket(ctx, log, storageSvc, "certificates", cfg.GetMinioBucketCertificates())
	log.Info(
		"storage service initialized",
		"photosBucket", cfg.GetMinioBucketInspectionPhotos(),
		"certificatesBucket", cfg.GetMinioBucketCertificates(),
	)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	authModule := auth.NewModule(pool, cfg, val, eventBus, log)
	paymentsModule := payments.NewModule(pool, val, eventBus, log)

	appointmentsModule := appointments.NewModule(pool, cfg, val, adapters.NewPaymentLedgerAdapter(paymentsModule.Service), eventBus, log)
	inspectionsModule := inspections.NewModule(
		pool, val,
		adapters.NewAppointmentGatewayAdapter(appointmentsModule.Service),
		adapters.NewPaymentStatusAdapter(paymentsModule.Service),
		eventBus, log, cfg.GetVerifyTimeout(),
	)

	filesModule := files.NewModule(pool, storageSvc, eventBus, log, filesvc.Config{
		PhotoBucket:       cfg.GetMinioBucketInspectionPhotos(),
		CertificateBucket: cfg.GetMinioBucketCertificates(),
		MaxFileSize:       cfg.GetMinIOMaxFileSize(),
	})

	// Anti-corruption layer: wire the cross-module ports after construction
	// so no module imports another.
	appointmentsModule.Service.SetInspectionReader(adapters.NewInspectionReaderAdapter(inspectionsModule.Service))
	if schedulerClient != nil {
		appointmentsModule.Service.SetReminderScheduler(schedulerClient)
	}
	paymentsModule.Service.SetAppointmentOwnerLookup(adapters.NewAppointmentOwnerAdapter(appointmentsModule.Service))
	inspectionsModule.Service.SetContactReader(adapters.NewContactNameAdapter(authModule.Service()))
	inspectionsModule.Service.SetCertificateArchiver(filesModule.Service)
	filesModule.Service.SetOwnerResolver(adapters.NewFileOwnerAdapter(appointmentsModule.Service, inspectionsModule.Service))

	// Notification module subscribes to domain events and owns the inbox routes
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

	auditModule, err := audit.NewModule(pool, cfg, val, log)
	if err != nil {
		log.Error("failed to initialize audit module", "error", err)
		panic("failed to initialize audit module: " + err.Error())
	}
	defer func() { _ = auditModule.Close() }()

	// ========================================================================
	// Event Subscriptions
	// ========================================================================

	appointments.NewPaymentSubscriber(appointmentsModule.Service, log).Subscribe(eventBus)
	notificationModule.RegisterHandlers(eventBus)
	auditModule.RegisterHandlers(eventBus)
	if schedulerClient != nil {
		scheduler.NewReconcileSubscriber(schedulerClient, log).Subscribe(eventBus)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		Verifier: authModule.Service(),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			appointmentsModule,
			paymentsModule,
			inspectionsModule,
			filesModule,
			notificationModule,
			auditModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return auditModule.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}

	// Let in-flight async handlers finish before the pool closes.
	eventBus.Wait()
	log.Info("server stopped")
}

func initSchedulerClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; appointment reminders and reconcile tasks disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
