package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppointmentRepository is the storage used by the appointment service.
type AppointmentRepository interface {
	CreateInSlot(ctx context.Context, appt *Appointment, window time.Duration) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	FindByIdempotencyKey(ctx context.Context, customerID uuid.UUID, key string) (*Appointment, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Appointment, error)
	ListConfirmed(ctx context.Context) ([]Appointment, error)
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]Appointment, error)
	ListAll(ctx context.Context, status *string, offset, limit int) ([]Appointment, int, error)
	Transition(ctx context.Context, id uuid.UUID, decide Decider) (*Appointment, bool, error)
}

var _ AppointmentRepository = (*Repository)(nil)
