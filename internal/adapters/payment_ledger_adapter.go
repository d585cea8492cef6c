package adapters

import (
	"context"

	apptsvc "vehicle_inspection_backend/internal/appointments/service"
	paymentsvc "vehicle_inspection_backend/internal/payments/service"
	"vehicle_inspection_backend/platform/apperr"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// PaymentLedgerAdapter lets the appointment lifecycle read the payment ledger.
// It implements appointments/service.PaymentVerifier and always reads committed
// state from the ledger.
type PaymentLedgerAdapter struct {
	payments *paymentsvc.Service
}

// NewPaymentLedgerAdapter wraps the payments service.
func NewPaymentLedgerAdapter(payments *paymentsvc.Service) *PaymentLedgerAdapter {
	return &PaymentLedgerAdapter{payments: payments}
}

// LookupPayment returns the payment or nil when it does not exist.
func (a *PaymentLedgerAdapter) LookupPayment(ctx context.Context, paymentID uuid.UUID) (*apptsvc.PaymentRecord, error) {
	ctx, finish := startCall(ctx, "payments.lookup", attribute.String("payment.id", paymentID.String()))
	p, err := a.payments.GetByID(ctx, paymentID)
	if apperr.Is(err, apperr.KindNotFound) {
		finish(nil)
		return nil, nil
	}
	finish(err)
	if err != nil {
		return nil, err
	}
	return &apptsvc.PaymentRecord{
		ID:            p.ID,
		AppointmentID: p.AppointmentID,
		PaymentType:   p.PaymentType,
		Status:        p.Status,
	}, nil
}

// CompletedPayment returns the completed payment of a type for an appointment, if any.
func (a *PaymentLedgerAdapter) CompletedPayment(ctx context.Context, appointmentID uuid.UUID, paymentType string) (*apptsvc.PaymentRecord, error) {
	ctx, finish := startCall(ctx, "payments.completed",
		attribute.String("appointment.id", appointmentID.String()),
		attribute.String("payment.type", paymentType),
	)
	p, err := a.payments.Verify(ctx, appointmentID, paymentType)
	finish(err)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return &apptsvc.PaymentRecord{
		ID:            p.ID,
		AppointmentID: p.AppointmentID,
		PaymentType:   p.PaymentType,
		Status:        p.Status,
	}, nil
}

var _ apptsvc.PaymentVerifier = (*PaymentLedgerAdapter)(nil)
