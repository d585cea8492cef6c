// Package inspections provides the inspection record store module.
package inspections

import (
	"time"

	"vehicle_inspection_backend/internal/events"
	apphttp "vehicle_inspection_backend/internal/http"
	"vehicle_inspection_backend/internal/inspections/handler"
	"vehicle_inspection_backend/internal/inspections/repository"
	"vehicle_inspection_backend/internal/inspections/service"
	"vehicle_inspection_backend/platform/logger"
	"vehicle_inspection_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the inspections domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new inspections module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, appointments service.AppointmentGateway, payments service.PaymentStatusReader, eventBus events.Bus, log *logger.Logger, timeout time.Duration) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, appointments, payments, eventBus, log, timeout)

	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
	}
}

// Name returns the module name
func (m *Module) Name() string {
	return "inspections"
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/inspections"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/inspections"))
}

var _ apphttp.Module = (*Module)(nil)
