package service

import (
	"context"

	"vehicle_inspection_backend/internal/authz"

	"github.com/google/uuid"
)

// AppointmentInfo is the part of an appointment the inspection store needs.
type AppointmentInfo struct {
	ID           uuid.UUID
	CustomerID   uuid.UUID
	Status       string
	Registration string
	Brand        string
	Model        string
	VehicleType  string
}

// AppointmentGateway reaches the appointment lifecycle. Implementations bound
// each call with a timeout; callers treat any error as a refusal.
type AppointmentGateway interface {
	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*AppointmentInfo, error)
	RecordInspectionOutcome(ctx context.Context, actor authz.Actor, appointmentID uuid.UUID, finalStatus string) error
}

// PaymentInfo is the ledger's view of a completed payment.
type PaymentInfo struct {
	ID            uuid.UUID
	InvoiceNumber *string
}

// PaymentStatusReader reads completed payments from the ledger.
type PaymentStatusReader interface {
	CompletedPayment(ctx context.Context, appointmentID uuid.UUID, paymentType string) (*PaymentInfo, error)
}

// ContactReader resolves display names for certificates.
type ContactReader interface {
	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)
}

// CertificateArchiver keeps a copy of every issued certificate.
type CertificateArchiver interface {
	ArchiveCertificate(ctx context.Context, appointmentID uuid.UUID, number string, document []byte) error
}
