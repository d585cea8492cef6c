package adapters

import (
	"context"

	apptsvc "vehicle_inspection_backend/internal/appointments/service"
	"vehicle_inspection_backend/internal/authz"
	inspectionsvc "vehicle_inspection_backend/internal/inspections/service"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// AppointmentGatewayAdapter gives the inspection store access to the
// appointment lifecycle. It implements inspections/service.AppointmentGateway.
type AppointmentGatewayAdapter struct {
	appointments *apptsvc.Service
}

// NewAppointmentGatewayAdapter wraps the appointments service.
func NewAppointmentGatewayAdapter(appointments *apptsvc.Service) *AppointmentGatewayAdapter {
	return &AppointmentGatewayAdapter{appointments: appointments}
}

// GetAppointment reads the committed state of an appointment.
func (a *AppointmentGatewayAdapter) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*inspectionsvc.AppointmentInfo, error) {
	ctx, finish := startCall(ctx, "appointments.get", attribute.String("appointment.id", appointmentID.String()))
	appt, err := a.appointments.GetInternal(ctx, appointmentID)
	finish(err)
	if err != nil {
		return nil, err
	}
	return &inspectionsvc.AppointmentInfo{
		ID:           appt.ID,
		CustomerID:   appt.CustomerID,
		Status:       appt.Status,
		Registration: appt.VehicleRegistration,
		Brand:        appt.VehicleBrand,
		Model:        appt.VehicleModel,
		VehicleType:  appt.VehicleType,
	}, nil
}

// RecordInspectionOutcome writes the verdict onto the appointment as the
// submitting technician.
func (a *AppointmentGatewayAdapter) RecordInspectionOutcome(ctx context.Context, actor authz.Actor, appointmentID uuid.UUID, finalStatus string) error {
	ctx, finish := startCall(ctx, "appointments.record_outcome",
		attribute.String("appointment.id", appointmentID.String()),
		attribute.String("inspection.final_status", finalStatus),
	)
	_, err := a.appointments.RecordInspectionOutcome(ctx, actor, appointmentID, finalStatus)
	finish(err)
	return err
}

var _ inspectionsvc.AppointmentGateway = (*AppointmentGatewayAdapter)(nil)
