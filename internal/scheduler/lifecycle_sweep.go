package scheduler

import (
	"context"
	"time"

	"vehicle_inspection_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultSweepInterval = 5 * time.Minute
	defaultSweepLookback = 7 * 24 * time.Hour
	sweepBatch           = 100
)

// InspectedAppointment is one inspection record seen by the sweep.
type InspectedAppointment struct {
	InspectionID  uuid.UUID
	AppointmentID uuid.UUID
	InspectedAt   time.Time
}

// Reconciler repairs appointments from their inspection records.
type Reconciler interface {
	// InspectedSince pages through inspection records in creation order,
	// starting after the (since, afterID) key.
	InspectedSince(ctx context.Context, since time.Time, afterID uuid.UUID, limit int) ([]InspectedAppointment, error)
	ReconcileAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error)
}

// LifecycleSweep walks recent inspection records and applies each verdict to
// an appointment that is still confirmed.
type LifecycleSweep struct {
	reconciler Reconciler
	log        *logger.Logger
	interval   time.Duration
	lookback   time.Duration
	now        func() time.Time
}

func NewLifecycleSweep(reconciler Reconciler, log *logger.Logger, interval time.Duration) *LifecycleSweep {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &LifecycleSweep{
		reconciler: reconciler,
		log:        log,
		interval:   interval,
		lookback:   defaultSweepLookback,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *LifecycleSweep) Run(ctx context.Context) error {
	if s == nil || s.reconciler == nil {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// sweep returns the number of appointments it repaired. It pages through the
// whole lookback window, so records that need no repair never hide later ones.
func (s *LifecycleSweep) sweep(ctx context.Context) int {
	since, afterID := s.now().Add(-s.lookback), uuid.Nil

	repaired, checked := 0, 0
	for ctx.Err() == nil {
		page, err := s.reconciler.InspectedSince(ctx, since, afterID, sweepBatch)
		if err != nil {
			s.log.DatabaseError("list inspections for lifecycle sweep", err)
			break
		}

		for _, item := range page {
			if ctx.Err() != nil {
				break
			}
			checked++
			changed, err := s.reconciler.ReconcileAppointment(ctx, item.AppointmentID)
			if err != nil {
				s.log.Warn("lifecycle reconcile failed", "appointmentId", item.AppointmentID, "error", err)
				continue
			}
			if changed {
				repaired++
			}
		}

		if len(page) < sweepBatch {
			break
		}
		last := page[len(page)-1]
		since, afterID = last.InspectedAt, last.InspectionID
	}

	if repaired > 0 {
		s.log.Info("lifecycle sweep repaired appointments", "repaired", repaired, "checked", checked)
	}
	return repaired
}
