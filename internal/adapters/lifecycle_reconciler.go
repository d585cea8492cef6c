package adapters

import (
	"context"
	"fmt"
	"time"

	apptrepo "vehicle_inspection_backend/internal/appointments/repository"
	apptsvc "vehicle_inspection_backend/internal/appointments/service"
	inspectionsvc "vehicle_inspection_backend/internal/inspections/service"
	"vehicle_inspection_backend/internal/scheduler"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// LifecycleReconciler repairs appointments that missed their inspection
// verdict. The inspection record is authoritative.
type LifecycleReconciler struct {
	appointments *apptsvc.Service
	inspections  *inspectionsvc.Service
}

// NewLifecycleReconciler wires both sides of the repair.
func NewLifecycleReconciler(appointments *apptsvc.Service, inspections *inspectionsvc.Service) *LifecycleReconciler {
	return &LifecycleReconciler{appointments: appointments, inspections: inspections}
}

// ReconcileAppointment applies the stored verdict to one appointment. It
// returns false when there is no record or nothing changed.
func (r *LifecycleReconciler) ReconcileAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	ctx, finish := startCall(ctx, "lifecycle.reconcile", attribute.String("appointment.id", appointmentID.String()))
	changed, err := r.reconcile(ctx, appointmentID)
	finish(err)
	return changed, err
}

func (r *LifecycleReconciler) reconcile(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	record, err := r.inspections.FindByAppointment(ctx, appointmentID)
	if err != nil {
		return false, fmt.Errorf("read inspection: %w", err)
	}
	if record == nil {
		return false, nil
	}
	appt, err := r.appointments.GetInternal(ctx, appointmentID)
	if err != nil {
		return false, fmt.Errorf("read appointment: %w", err)
	}
	// Only confirmed appointments can take a verdict; skip the row lock for
	// everything else.
	if appt.Status != apptrepo.StatusConfirmed {
		return false, nil
	}
	return r.appointments.Reconcile(ctx, appointmentID, record.FinalStatus)
}

// InspectedSince lists inspection records in creation order for the sweep.
func (r *LifecycleReconciler) InspectedSince(ctx context.Context, since time.Time, afterID uuid.UUID, limit int) ([]scheduler.InspectedAppointment, error) {
	records, err := r.inspections.ListCreatedAfter(ctx, since, afterID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]scheduler.InspectedAppointment, 0, len(records))
	for _, rec := range records {
		out = append(out, scheduler.InspectedAppointment{
			InspectionID:  rec.ID,
			AppointmentID: rec.AppointmentID,
			InspectedAt:   rec.CreatedAt,
		})
	}
	return out, nil
}
