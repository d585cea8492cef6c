// Package files provides the file store module for inspection photos and
// archived certificates.
package files

import (
	"vehicle_inspection_backend/internal/adapters/storage"
	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/internal/files/handler"
	"vehicle_inspection_backend/internal/files/repository"
	"vehicle_inspection_backend/internal/files/service"
	apphttp "vehicle_inspection_backend/internal/http"
	"vehicle_inspection_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the files domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new files module with all dependencies wired
func NewModule(pool *pgxpool.Pool, store storage.ObjectStore, eventBus events.Bus, log *logger.Logger, cfg service.Config) *Module {
	svc := service.New(repository.New(pool), store, eventBus, log, cfg)

	return &Module{
		handler: handler.New(svc),
		Service: svc,
	}
}

// Name returns the module name
func (m *Module) Name() string {
	return "files"
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/files"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/files"))
}

var _ apphttp.Module = (*Module)(nil)
