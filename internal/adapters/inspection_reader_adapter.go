package adapters

import (
	"context"

	apptsvc "vehicle_inspection_backend/internal/appointments/service"
	inspectionsvc "vehicle_inspection_backend/internal/inspections/service"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// InspectionReaderAdapter answers "is this appointment inspected" from the
// inspection store. It implements appointments/service.InspectionReader.
type InspectionReaderAdapter struct {
	inspections *inspectionsvc.Service
}

// NewInspectionReaderAdapter wraps the inspections service.
func NewInspectionReaderAdapter(inspections *inspectionsvc.Service) *InspectionReaderAdapter {
	return &InspectionReaderAdapter{inspections: inspections}
}

// HasInspection reports whether an inspection record exists.
func (a *InspectionReaderAdapter) HasInspection(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	ctx, finish := startCall(ctx, "inspections.exists", attribute.String("appointment.id", appointmentID.String()))
	record, err := a.inspections.FindByAppointment(ctx, appointmentID)
	finish(err)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

var _ apptsvc.InspectionReader = (*InspectionReaderAdapter)(nil)
