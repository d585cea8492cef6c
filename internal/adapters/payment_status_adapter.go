package adapters

import (
	"context"

	inspectionsvc "vehicle_inspection_backend/internal/inspections/service"
	paymentsvc "vehicle_inspection_backend/internal/payments/service"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// PaymentStatusAdapter lets the inspection store check for a settled
// inspection fee. It implements inspections/service.PaymentStatusReader.
type PaymentStatusAdapter struct {
	payments *paymentsvc.Service
}

// NewPaymentStatusAdapter wraps the payments service.
func NewPaymentStatusAdapter(payments *paymentsvc.Service) *PaymentStatusAdapter {
	return &PaymentStatusAdapter{payments: payments}
}

// CompletedPayment returns the completed payment of a type, or nil.
func (a *PaymentStatusAdapter) CompletedPayment(ctx context.Context, appointmentID uuid.UUID, paymentType string) (*inspectionsvc.PaymentInfo, error) {
	ctx, finish := startCall(ctx, "payments.completed",
		attribute.String("appointment.id", appointmentID.String()),
		attribute.String("payment.type", paymentType),
	)
	p, err := a.payments.Verify(ctx, appointmentID, paymentType)
	finish(err)
	if err != nil || p == nil {
		return nil, err
	}
	return &inspectionsvc.PaymentInfo{ID: p.ID, InvoiceNumber: p.InvoiceNumber}, nil
}

var _ inspectionsvc.PaymentStatusReader = (*PaymentStatusAdapter)(nil)
