package adapters

import (
	"context"

	apptsvc "vehicle_inspection_backend/internal/appointments/service"
	"vehicle_inspection_backend/internal/authz"
	filesvc "vehicle_inspection_backend/internal/files/service"
	inspectionsvc "vehicle_inspection_backend/internal/inspections/service"
	"vehicle_inspection_backend/platform/apperr"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// FileOwnerAdapter resolves upload owner references for the file store. A
// reference is either an appointment id or an inspection id.
type FileOwnerAdapter struct {
	appointments *apptsvc.Service
	inspections  *inspectionsvc.Service
}

// NewFileOwnerAdapter wraps the appointment and inspection services.
func NewFileOwnerAdapter(appointments *apptsvc.Service, inspections *inspectionsvc.Service) *FileOwnerAdapter {
	return &FileOwnerAdapter{appointments: appointments, inspections: inspections}
}

// OwnerCustomer returns the customer behind ownerRef.
func (a *FileOwnerAdapter) OwnerCustomer(ctx context.Context, ownerRef uuid.UUID) (uuid.UUID, error) {
	ctx, finish := startCall(ctx, "files.owner", attribute.String("owner.ref", ownerRef.String()))
	customerID, err := a.resolve(ctx, ownerRef)
	finish(err)
	return customerID, err
}

func (a *FileOwnerAdapter) resolve(ctx context.Context, ownerRef uuid.UUID) (uuid.UUID, error) {
	appt, err := a.appointments.GetInternal(ctx, ownerRef)
	if err == nil {
		return appt.CustomerID, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return uuid.Nil, err
	}

	record, err := a.inspections.Get(ctx, authz.System(), ownerRef)
	if err != nil {
		return uuid.Nil, err
	}
	appt, err = a.appointments.GetInternal(ctx, record.AppointmentID)
	if err != nil {
		return uuid.Nil, err
	}
	return appt.CustomerID, nil
}

var _ filesvc.OwnerResolver = (*FileOwnerAdapter)(nil)
var _ inspectionsvc.CertificateArchiver = (*filesvc.Service)(nil)
