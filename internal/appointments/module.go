// Package appointments provides the appointment lifecycle module.
package appointments

import (
	"vehicle_inspection_backend/internal/appointments/handler"
	"vehicle_inspection_backend/internal/appointments/repository"
	"vehicle_inspection_backend/internal/appointments/service"
	"vehicle_inspection_backend/internal/events"
	apphttp "vehicle_inspection_backend/internal/http"
	"vehicle_inspection_backend/platform/config"
	"vehicle_inspection_backend/platform/logger"
	"vehicle_inspection_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the appointments domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new appointments module with all dependencies wired
func NewModule(pool *pgxpool.Pool, cfg config.LifecycleConfig, val *validator.Validator, payments service.PaymentVerifier, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, payments, eventBus, log, service.Config{
		VerifyTimeout: cfg.GetVerifyTimeout(),
		Location:      cfg.GetScheduleLocation(),
	})

	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "appointments"
}

// RegisterRoutes registers the module's routes under /api/v1/appointments
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.V1.Group("/appointments"))
	m.handler.RegisterRoutes(ctx.Protected.Group("/appointments"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/appointments"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
