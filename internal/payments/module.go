// Package payments provides the payment ledger module.
package payments

import (
	"vehicle_inspection_backend/internal/events"
	apphttp "vehicle_inspection_backend/internal/http"
	"vehicle_inspection_backend/internal/payments/handler"
	"vehicle_inspection_backend/internal/payments/repository"
	"vehicle_inspection_backend/internal/payments/service"
	"vehicle_inspection_backend/platform/logger"
	"vehicle_inspection_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the payments domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new payments module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)

	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
	}
}

// Name returns the module name
func (m *Module) Name() string {
	return "payments"
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/payments"))
}

var _ apphttp.Module = (*Module)(nil)
