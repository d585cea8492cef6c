package repository

import (
	"context"

	"github.com/google/uuid"
)

// PaymentRepository is the storage used by the payment service.
type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindCompleted(ctx context.Context, appointmentID uuid.UUID, paymentType string) (*Payment, error)
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Payment, error)
	ListByPayer(ctx context.Context, payerID uuid.UUID) ([]Payment, error)
	Settle(ctx context.Context, id uuid.UUID, decide SettleDecider) (*Payment, bool, error)
}

var _ PaymentRepository = (*Repository)(nil)
