package appointments

import (
	"context"

	"vehicle_inspection_backend/internal/appointments/service"
	"vehicle_inspection_backend/internal/authz"
	"vehicle_inspection_backend/internal/events"
	"vehicle_inspection_backend/platform/apperr"
	"vehicle_inspection_backend/platform/logger"
)

// PaymentSubscriber reacts to settled payments: a booking fee confirms the
// appointment and an inspection fee is attached to it.
type PaymentSubscriber struct {
	svc *service.Service
	log *logger.Logger
}

// NewPaymentSubscriber creates the payment reaction handler.
func NewPaymentSubscriber(svc *service.Service, log *logger.Logger) *PaymentSubscriber {
	return &PaymentSubscriber{svc: svc, log: log}
}

// Subscribe registers the handler on the bus.
func (s *PaymentSubscriber) Subscribe(bus events.Bus) {
	bus.Subscribe(events.PaymentCompleted{}.EventName(), s)
}

// Handle implements events.Handler.
func (s *PaymentSubscriber) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.PaymentCompleted)
	if !ok {
		return nil
	}

	var err error
	switch e.PaymentType {
	case "booking_fee":
		_, err = s.svc.Confirm(ctx, authz.System(), e.AppointmentID, e.PaymentID)
	case "inspection_fee":
		_, err = s.svc.AttachInspectionPayment(ctx, e.AppointmentID, e.PaymentID)
	default:
		return nil
	}

	// A cancelled appointment keeps its payment; nothing to do here.
	if apperr.Is(err, apperr.KindInvalidState) {
		s.log.WithContext(ctx).Info("payment not applied to appointment",
			"appointment_id", e.AppointmentID, "payment_id", e.PaymentID, "reason", err.Error())
		return nil
	}
	if err != nil {
		s.log.WithContext(ctx).Error("failed to apply payment to appointment",
			"appointment_id", e.AppointmentID, "payment_id", e.PaymentID, "error", err)
	}
	return err
}
