package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaymentRecord is the ledger's view of one payment.
type PaymentRecord struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	PaymentType   string
	Status        string
}

// PaymentVerifier reads the payment ledger. Implementations must return the
// latest committed state and never cache.
type PaymentVerifier interface {
	LookupPayment(ctx context.Context, paymentID uuid.UUID) (*PaymentRecord, error)
	CompletedPayment(ctx context.Context, appointmentID uuid.UUID, paymentType string) (*PaymentRecord, error)
}

// InspectionReader reports whether an inspection record exists.
type InspectionReader interface {
	HasInspection(ctx context.Context, appointmentID uuid.UUID) (bool, error)
}

// ReminderScheduler schedules the pre-appointment reminder.
type ReminderScheduler interface {
	ScheduleAppointmentReminder(ctx context.Context, appointmentID uuid.UUID, runAt time.Time) error
}
