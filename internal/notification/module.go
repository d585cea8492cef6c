// Package notification provides the notification dispatcher: the user inbox,
// the email and sms outbox, and the event subscriptions that turn lifecycle
// events into customer messages.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vehicle_inspection_backend/internal/auth"
	"vehicle_inspection_backend/internal/events"
	apphttp "vehicle_inspection_backend/internal/http"
	"vehicle_inspection_backend/internal/notification/channel"
	notifhandler "vehicle_inspection_backend/internal/notification/handler"
	"vehicle_inspection_backend/internal/notification/inapp"
	"vehicle_inspection_backend/internal/notification/outbox"
	"vehicle_inspection_backend/internal/notification/sse"
	"vehicle_inspection_backend/internal/notification/templates"
	"vehicle_inspection_backend/internal/pdf"
	"vehicle_inspection_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const whenLayout = "Mon 2 Jan 2006 15:04"

// Config holds the presentation settings of outgoing messages.
type Config struct {
	Location    *time.Location
	PhoneRegion string
}

// Module wires the inbox, the dispatcher and the outbox deliverer.
type Module struct {
	inbox      *inapp.Service
	stream     *sse.Service
	handler    *notifhandler.HTTPHandler
	dispatcher *Dispatcher
	deliverer  *Deliverer
	catalog    *templates.Catalog
	contacts   auth.ContactProvider
	loc        *time.Location
	log        *logger.Logger
}

// New creates the notification module.
func New(pool *pgxpool.Pool, email channel.EmailSender, sms channel.SMSSender, contacts auth.ContactProvider, cfg Config, log *logger.Logger) (*Module, error) {
	catalog, err := templates.Load()
	if err != nil {
		return nil, err
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	stream := sse.New(log)
	inbox := inapp.NewService(inapp.NewRepository(pool), log)
	inbox.SetSSE(stream)
	outboxRepo := outbox.New(pool)

	return &Module{
		inbox:      inbox,
		stream:     stream,
		handler:    notifhandler.NewHTTPHandler(inbox, stream),
		dispatcher: NewDispatcher(inbox, outboxRepo, cfg.PhoneRegion, log),
		deliverer:  NewDeliverer(outboxRepo, email, sms, log),
		catalog:    catalog,
		contacts:   contacts,
		loc:        loc,
		log:        log,
	}, nil
}

// Name returns the module name
func (m *Module) Name() string {
	return "notifications"
}

// RegisterRoutes registers the inbox routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

var _ apphttp.Module = (*Module)(nil)

// Dispatcher exposes Send for other modules.
func (m *Module) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// Close drops the open live streams.
func (m *Module) Close() {
	if m.stream != nil {
		m.stream.Close()
	}
}

// RegisterHandlers subscribes the module to the events it turns into messages.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.AppointmentConfirmed{}.EventName(), m)
	bus.Subscribe(events.AppointmentCancelled{}.EventName(), m)
	bus.Subscribe(events.AppointmentReminderDue{}.EventName(), m)
	bus.Subscribe(events.AppointmentCompleted{}.EventName(), m)
	bus.Subscribe(events.PaymentCompleted{}.EventName(), m)
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.AppointmentConfirmed:
		return m.notify(ctx, e.CustomerID, templates.AppointmentConfirmation, templates.Data{
			Registration: e.Registration,
			When:         m.formatWhen(e.RequestedAt),
		}, map[string]any{"appointmentId": e.AppointmentID}, true)
	case events.AppointmentCancelled:
		return m.notify(ctx, e.CustomerID, templates.AppointmentCancelled, templates.Data{
			Registration: e.Registration,
			When:         m.formatWhen(e.RequestedAt),
		}, map[string]any{"appointmentId": e.AppointmentID}, false)
	case events.AppointmentReminderDue:
		return m.notify(ctx, e.CustomerID, templates.AppointmentReminder, templates.Data{
			Registration: e.Registration,
			When:         m.formatWhen(e.RequestedAt),
		}, map[string]any{"appointmentId": e.AppointmentID}, true)
	case events.AppointmentCompleted:
		return m.notify(ctx, e.CustomerID, templates.InspectionCompleted, templates.Data{
			Registration: e.Registration,
			Verdict:      pdf.VerdictLabel(e.Verdict),
		}, map[string]any{"appointmentId": e.AppointmentID, "verdict": e.Verdict}, false)
	case events.PaymentCompleted:
		data := templates.Data{
			PaymentType: paymentTypeLabel(e.PaymentType),
			Amount:      fmt.Sprintf("%.2f", e.Amount),
		}
		if e.InvoiceNumber != nil {
			data.InvoiceNumber = *e.InvoiceNumber
		}
		return m.notify(ctx, e.PayerID, templates.PaymentReceived, data,
			map[string]any{"appointmentId": e.AppointmentID, "paymentId": e.PaymentID}, false)
	case events.NotificationOutboxDue:
		return m.deliverer.Deliver(ctx, e.OutboxID)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// notify renders a template for a user and sends it in-app and by email.
// withSMS adds a text message when the user has a phone number on file.
// Failures never propagate to the publisher.
func (m *Module) notify(ctx context.Context, userID uuid.UUID, key string, data templates.Data, metadata map[string]any, withSMS bool) error {
	log := m.log.WithContext(ctx)

	contact, err := m.contacts.GetContact(ctx, userID)
	if err != nil {
		log.Warn("notification skipped; contact lookup failed", "template", key, "userId", userID, "error", err)
		return nil
	}
	data.Name = contact.FullName()

	rendered, err := m.catalog.Render(key, data)
	if err != nil {
		log.Error("notification skipped; template failed", "template", key, "error", err)
		return nil
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["template"] = key

	base := Message{
		UserID:   userID,
		Category: rendered.Category,
		Subject:  rendered.Subject,
		Body:     rendered.Body,
		Metadata: metadata,
	}

	inApp := base
	inApp.Channel = inapp.ChannelInApp
	m.dispatcher.Send(ctx, inApp)

	if contact.Email != "" {
		email := base
		email.Channel = inapp.ChannelEmail
		email.Recipient = contact.Email
		m.dispatcher.Send(ctx, email)
	}

	if withSMS && contact.Phone != nil && strings.TrimSpace(*contact.Phone) != "" {
		sms := base
		sms.Channel = inapp.ChannelSMS
		sms.Recipient = *contact.Phone
		sms.Body = rendered.SMS
		m.dispatcher.Send(ctx, sms)
	}
	return nil
}

func (m *Module) formatWhen(t time.Time) string {
	return t.In(m.loc).Format(whenLayout)
}

func paymentTypeLabel(paymentType string) string {
	return strings.ReplaceAll(paymentType, "_", " ")
}
