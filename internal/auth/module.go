// Package auth provides the identity bounded context module.
// This file defines the module that encapsulates all auth setup and route registration.
package auth

import (
	"vehicle_inspection_backend/internal/auth/handler"
	"vehicle_inspection_backend/internal/auth/repository"
	"vehicle_inspection_backend/internal/auth/service"
	"vehicle_inspection_backend/internal/auth/token"
	"vehicle_inspection_backend/internal/events"
	apphttp "vehicle_inspection_backend/internal/http"
	"vehicle_inspection_backend/platform/config"
	"vehicle_inspection_backend/platform/logger"
	"vehicle_inspection_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// AuthConfig combines the settings the auth module needs.
type AuthConfig interface {
	config.AuthServiceConfig
	GetPhoneDefaultRegion() string
}

// NewModule creates and initializes the auth module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg AuthConfig, val *validator.Validator, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	issuer := token.NewIssuer(cfg.GetJWTAccessSecret())
	svc := service.New(repo, issuer, cfg, cfg.GetPhoneDefaultRegion(), eventBus, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the auth service. It is the token verifier of the HTTP layer
// and the contact provider of the notification module.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public auth routes with stricter rate limiting
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)

	ctx.Protected.GET("/auth/verify", m.handler.Verify)
	ctx.Protected.GET("/auth/me", m.handler.Me)

	ctx.Admin.GET("/users", m.handler.ListUsers)
	ctx.Admin.POST("/users/technicians", m.handler.CreateTechnician)
	ctx.Admin.PUT("/users/:id/role", m.handler.ChangeRole)
	ctx.Admin.PUT("/users/:id/session-timeout", m.handler.SetSessionTimeout)
	ctx.Admin.GET("/session-config", m.handler.SessionConfig)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
