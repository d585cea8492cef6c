package notification

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"vehicle_inspection_backend/internal/notification/inapp"
	"vehicle_inspection_backend/internal/notification/outbox"
	"vehicle_inspection_backend/platform/logger"
	"vehicle_inspection_backend/platform/phone"

	"github.com/google/uuid"
)

// Message is one notification addressed to a user through one channel.
type Message struct {
	UserID    uuid.UUID
	Recipient string
	Channel   string
	Category  string
	Subject   string
	Body      string
	Metadata  map[string]any
}

// Receipt reports whether the dispatcher took ownership of a message.
type Receipt struct {
	Accepted       bool
	NotificationID uuid.UUID
}

type inboxStore interface {
	Store(ctx context.Context, p inapp.CreateParams) (inapp.Notification, error)
}

type outboxWriter interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
}

// Dispatcher records notifications and queues external deliveries.
type Dispatcher struct {
	inbox       inboxStore
	outbox      outboxWriter
	phoneRegion string
	log         *logger.Logger
	now         func() time.Time
}

func NewDispatcher(inbox inboxStore, ob outboxWriter, phoneRegion string, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		inbox:       inbox,
		outbox:      ob,
		phoneRegion: phoneRegion,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Send stores msg in the user's notification history and, for email and sms,
// queues an outbox row for asynchronous delivery. It never fails the caller:
// problems are logged and reported through Receipt.Accepted.
func (d *Dispatcher) Send(ctx context.Context, msg Message) Receipt {
	log := d.log.WithContext(ctx)

	normalized, reason := d.normalize(msg)
	if reason != "" {
		log.Warn("notification rejected", "reason", reason, "channel", msg.Channel, "userId", msg.UserID)
		return Receipt{}
	}

	notif, err := d.inbox.Store(ctx, inapp.CreateParams{
		UserID:    normalized.UserID,
		Recipient: normalized.Recipient,
		Channel:   normalized.Channel,
		Category:  normalized.Category,
		Subject:   normalized.Subject,
		Body:      normalized.Body,
		Metadata:  normalized.Metadata,
	})
	if err != nil {
		log.Error("notification not stored", "error", err, "channel", normalized.Channel, "userId", normalized.UserID)
		return Receipt{}
	}

	if normalized.Channel == inapp.ChannelInApp {
		return Receipt{Accepted: true, NotificationID: notif.ID}
	}

	outboxID, err := d.outbox.Insert(ctx, outbox.InsertParams{
		NotificationID: notif.ID,
		Channel:        normalized.Channel,
		Payload: outbox.Payload{
			Recipient: normalized.Recipient,
			Subject:   normalized.Subject,
			Body:      normalized.Body,
		},
		RunAt: d.now(),
	})
	if err != nil {
		log.Error("notification delivery not queued", "error", err, "notificationId", notif.ID, "channel", normalized.Channel)
		return Receipt{NotificationID: notif.ID}
	}

	log.Info("notification queued", "notificationId", notif.ID, "outboxId", outboxID, "channel", normalized.Channel)
	return Receipt{Accepted: true, NotificationID: notif.ID}
}

func (d *Dispatcher) normalize(msg Message) (Message, string) {
	if msg.UserID == uuid.Nil {
		return msg, "missing user"
	}
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Body = strings.TrimSpace(msg.Body)
	if msg.Subject == "" || msg.Body == "" {
		return msg, "empty subject or body"
	}

	switch msg.Category {
	case "":
		msg.Category = inapp.CategoryAppointment
	case inapp.CategoryAppointment, inapp.CategoryPayment, inapp.CategoryInspection, inapp.CategoryAuth:
	default:
		return msg, "unknown category"
	}

	recipient := strings.TrimSpace(msg.Recipient)
	switch msg.Channel {
	case inapp.ChannelEmail:
		addr, err := mail.ParseAddress(recipient)
		if err != nil {
			return msg, "invalid email recipient"
		}
		msg.Recipient = strings.ToLower(addr.Address)
	case inapp.ChannelSMS:
		e164, ok := phone.Parse(recipient, d.phoneRegion)
		if !ok {
			return msg, "invalid sms recipient"
		}
		msg.Recipient = e164
	case inapp.ChannelInApp:
		if recipient == "" {
			recipient = msg.UserID.String()
		}
		msg.Recipient = recipient
	default:
		return msg, "unknown channel"
	}
	return msg, ""
}
