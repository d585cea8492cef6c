// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/platform/config"
	"vehicle_inspection_backend/platform/httpkit"
	"vehicle_inspection_backend/platform/logger"
)

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the router configuration.
	Config config.HTTPConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness checks (database ping).
	Health HealthChecker
	// Verifier validates access tokens on protected routes.
	Verifier httpkit.TokenVerifier
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
