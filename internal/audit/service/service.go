// Package service exposes the audit log to administrators.
package service

import (
	"context"
	"strings"
	"time"

	"vehicle_inspection_backend/internal/audit/repository"
	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/logger"
)

const (
	defaultPageSize  = 100
	maxPageSize      = 500
	recentErrorLimit = 10
	maxRetentionDays = 3650
)

// Store is the read side of the audit log.
type Store interface {
	List(ctx context.Context, f repository.Filter) ([]repository.Entry, int, error)
	Stats(ctx context.Context, recentErrors int) (*repository.Stats, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ Store = (*repository.Repository)(nil)

// Page is one page of audit entries.
type Page struct {
	Items  []repository.Entry
	Total  int
	Offset int
	Limit  int
}

// Service provides the administrator view of the audit log
type Service struct {
	repo      Store
	retention time.Duration
	log       *logger.Logger
	now       func() time.Time
}

// New creates the audit service. retention is the default cleanup age.
func New(repo Store, retention time.Duration, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		retention: retention,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns entries newest first, optionally filtered by service and level.
func (s *Service) List(ctx context.Context, actor authz.Actor, service, level string, offset, limit int) (*Page, error) {
	if err := authz.Authorize(authz.OpAuditRead, actor); err != nil {
		return nil, err
	}
	level = strings.ToUpper(strings.TrimSpace(level))
	if level != "" && !repository.ValidLevel(level) {
		return nil, apperr.Validation("unknown level").WithDetails(map[string]string{"level": level})
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	items, total, err := s.repo.List(ctx, repository.Filter{
		Service: strings.TrimSpace(service),
		Level:   level,
		Offset:  offset,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Offset: offset, Limit: limit}, nil
}

// Stats returns counts by level and service and the latest errors.
func (s *Service) Stats(ctx context.Context, actor authz.Actor) (*repository.Stats, error) {
	if err := authz.Authorize(authz.OpAuditRead, actor); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx, recentErrorLimit)
}

// Cleanup deletes entries older than days. Zero uses the configured retention.
func (s *Service) Cleanup(ctx context.Context, actor authz.Actor, days int) (int64, error) {
	if err := authz.Authorize(authz.OpAuditCleanup, actor); err != nil {
		return 0, err
	}
	if days < 0 || days > maxRetentionDays {
		return 0, apperr.Validation("days must be between 1 and 3650")
	}
	age := s.retention
	if days > 0 {
		age = time.Duration(days) * 24 * time.Hour
	}
	return s.purge(ctx, age)
}

// PurgeExpired applies the configured retention. Used by the scheduler.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.purge(ctx, s.retention)
}

func (s *Service) purge(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-age)
	deleted, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.log.WithContext(ctx).Info("audit entries purged", "deleted", deleted, "cutoff", cutoff)
	return deleted, nil
}
