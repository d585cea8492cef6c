package scheduler

import (
	"context"

	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/platform/logger"

	"github.com/google/uuid"
)

// ReconcileEnqueuer queues a repair for one appointment.
type ReconcileEnqueuer interface {
	EnqueueReconcile(ctx context.Context, appointmentID uuid.UUID) error
}

// ReconcileSubscriber queues a reconcile task whenever an inspection was
// stored but its appointment update did not go through.
type ReconcileSubscriber struct {
	enqueuer ReconcileEnqueuer
	log      *logger.Logger
}

func NewReconcileSubscriber(enqueuer ReconcileEnqueuer, log *logger.Logger) *ReconcileSubscriber {
	return &ReconcileSubscriber{enqueuer: enqueuer, log: log}
}

func (s *ReconcileSubscriber) Subscribe(bus events.Bus) {
	bus.Subscribe(events.InspectionSubmitted{}.EventName(), s)
}

func (s *ReconcileSubscriber) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.InspectionSubmitted)
	if !ok || e.AppointmentSynced {
		return nil
	}
	if err := s.enqueuer.EnqueueReconcile(ctx, e.AppointmentID); err != nil {
		// the periodic sweep still picks the appointment up
		s.log.WithContext(ctx).SideEffectDropped("lifecycle.reconcile_enqueue", err)
	}
	return nil
}
