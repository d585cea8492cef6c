// Package audit provides the audit log: a non-blocking sink fed by domain
// events, its Postgres and RabbitMQ backends, and the administrator views.
package audit

import (
	"context"
	"fmt"

	"vehicle_inspection_backend/internal/audit/handler"
	"vehicle_inspection_backend/internal/audit/mq"
	"vehicle_inspection_backend/internal/audit/repository"
	"vehicle_inspection_backend/internal/audit/service"
	"vehicle_inspection_backend/internal/audit/sink"
	"vehicle_inspection_backend/internal/events"
	apphttp "vehicle_inspection_backend/internal/http"
	"vehicle_inspection_backend/platform/config"
	"vehicle_inspection_backend/platform/logger"
	"vehicle_inspection_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	SinkDatabase = "database"
	SinkAMQP     = "amqp"
	SinkBoth     = "both"
)

// Module represents the audit domain module
type Module struct {
	handler   *handler.Handler
	Service   *service.Service
	sink      *sink.Sink
	publisher *mq.Publisher
	log       *logger.Logger
}

// NewModule creates the audit module with the backends selected by cfg.
func NewModule(pool *pgxpool.Pool, cfg config.AuditConfig, val *validator.Validator, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)
	svc := service.New(repo, cfg.GetAuditRetention(), log)
	m := &Module{
		handler: handler.New(svc, val),
		Service: svc,
		log:     log,
	}

	var writers []sink.Writer
	switch cfg.GetAuditSink() {
	case SinkDatabase:
		writers = append(writers, repo)
	case SinkAMQP, SinkBoth:
		publisher, err := mq.NewPublisher(cfg.GetAMQPURL(), cfg.GetAuditExchange())
		if err != nil {
			return nil, fmt.Errorf("audit publisher: %w", err)
		}
		m.publisher = publisher
		writers = append(writers, publisher)
		if cfg.GetAuditSink() == SinkBoth {
			writers = append(writers, repo)
		}
	default:
		return nil, fmt.Errorf("unknown audit sink %q", cfg.GetAuditSink())
	}

	m.sink = sink.New(log, 0, 0, writers...)
	log.Info("audit sink initialized", "sink", cfg.GetAuditSink())
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string {
	return "audit"
}

// RegisterRoutes registers the administrator routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/audit"))
}

var _ apphttp.Module = (*Module)(nil)

// RegisterHandlers subscribes the audit log to every lifecycle event.
func (m *Module) RegisterHandlers(bus events.Bus) {
	NewSubscriber(m.sink).Register(bus)
	m.log.Info("audit module registered event handlers")
}

// Sink exposes Record for direct writes.
func (m *Module) Sink() *sink.Sink {
	return m.sink
}

// Run drains the sink until ctx is cancelled.
func (m *Module) Run(ctx context.Context) error {
	return m.sink.Run(ctx)
}

// Close releases the broker connection, if any.
func (m *Module) Close() error {
	if m.publisher != nil {
		return m.publisher.Close()
	}
	return nil
}
