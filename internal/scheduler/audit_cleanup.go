package scheduler

import (
	"context"
	"time"

	"vehicle_inspection_backend/platform/logger"
)

const defaultAuditCleanupInterval = 6 * time.Hour

// AuditPurger deletes audit entries past their retention.
type AuditPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// AuditCleanup periodically applies the audit retention.
type AuditCleanup struct {
	purger   AuditPurger
	log      *logger.Logger
	interval time.Duration
}

func NewAuditCleanup(purger AuditPurger, log *logger.Logger, interval time.Duration) *AuditCleanup {
	if interval <= 0 {
		interval = defaultAuditCleanupInterval
	}
	return &AuditCleanup{purger: purger, log: log, interval: interval}
}

func (c *AuditCleanup) Run(ctx context.Context) error {
	if c == nil || c.purger == nil {
		return nil
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *AuditCleanup) cleanup(ctx context.Context) {
	deleted, err := c.purger.PurgeExpired(ctx)
	if err != nil {
		c.log.Warn("audit cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		c.log.Info("audit cleanup deleted expired entries", "deleted", deleted)
	}
}
