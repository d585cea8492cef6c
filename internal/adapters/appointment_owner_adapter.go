package adapters

import (
	"context"

	apptsvc "vehicle_inspection_backend/internal/appointments/service"
	paymentsvc "vehicle_inspection_backend/internal/payments/service"

	"github.com/google/uuid"
)

// AppointmentOwnerAdapter resolves appointment owners for the payment ledger.
type AppointmentOwnerAdapter struct {
	appointments *apptsvc.Service
}

// NewAppointmentOwnerAdapter wraps the appointments service.
func NewAppointmentOwnerAdapter(appointments *apptsvc.Service) *AppointmentOwnerAdapter {
	return &AppointmentOwnerAdapter{appointments: appointments}
}

// AppointmentOwner returns the customer who booked the appointment.
func (a *AppointmentOwnerAdapter) AppointmentOwner(ctx context.Context, appointmentID uuid.UUID) (uuid.UUID, error) {
	appt, err := a.appointments.GetInternal(ctx, appointmentID)
	if err != nil {
		return uuid.Nil, err
	}
	return appt.CustomerID, nil
}

var _ paymentsvc.AppointmentOwnerLookup = (*AppointmentOwnerAdapter)(nil)
