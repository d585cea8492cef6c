package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"vehicle_inspection_backend/internal/notification/channel"
	"vehicle_inspection_backend/internal/notification/outbox"
	"vehicle_inspection_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	maxOutboxRetryAttempts     = 5
	outboxRetryBaseDelay       = 30 * time.Second
	outboxRetryMaxDelay        = 30 * time.Minute
	invalidOutboxPayloadPrefix = "invalid payload: "
)

type outboxStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

var _ outboxStore = (*outbox.Repository)(nil)

// Deliverer hands due outbox rows to the external channels.
type Deliverer struct {
	outbox outboxStore
	email  channel.EmailSender
	sms    channel.SMSSender
	log    *logger.Logger
	now    func() time.Time
}

func NewDeliverer(store outboxStore, email channel.EmailSender, sms channel.SMSSender, log *logger.Logger) *Deliverer {
	return &Deliverer{
		outbox: store,
		email:  email,
		sms:    sms,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Deliver processes one outbox row. Channel failures are rescheduled on the
// row itself, so only storage errors are returned.
func (d *Deliverer) Deliver(ctx context.Context, outboxID uuid.UUID) error {
	rec, process, err := d.prepareOutboxRecord(ctx, outboxID)
	if err != nil || !process {
		if err != nil {
			d.log.Error("failed to prepare outbox record", "outboxId", outboxID, "error", err)
		}
		return err
	}

	var payload outbox.Payload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		_ = d.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		return nil
	}
	if strings.TrimSpace(payload.Recipient) == "" || strings.TrimSpace(payload.Body) == "" {
		_ = d.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+"recipient and body are required")
		return nil
	}

	var sendErr error
	switch rec.Channel {
	case outbox.ChannelEmail:
		sendErr = d.email.SendEmail(ctx, payload.Recipient, payload.Subject, payload.Body)
	case outbox.ChannelSMS:
		sendErr = d.sms.SendSMS(ctx, payload.Recipient, smsText(payload))
	default:
		msg := fmt.Sprintf("unsupported outbox channel: %s", rec.Channel)
		_ = d.outbox.MarkFailed(ctx, rec.ID, msg)
		d.log.Warn("unsupported outbox record", "outboxId", rec.ID.String(), "channel", rec.Channel)
		return nil
	}

	if sendErr != nil {
		d.handleOutboxDeliveryError(ctx, rec, sendErr)
		return nil
	}

	_ = d.outbox.MarkSucceeded(ctx, rec.ID)
	d.log.Info("outbox record delivered", "outboxId", rec.ID.String(), "channel", rec.Channel, "notificationId", rec.NotificationID)
	return nil
}

func (d *Deliverer) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (outbox.Record, bool, error) {
	rec, err := d.outbox.GetByID(ctx, outboxID)
	if errors.Is(err, pgx.ErrNoRows) {
		d.log.Warn("outbox record vanished; skipping", "outboxId", outboxID)
		return outbox.Record{}, false, nil
	}
	if err != nil {
		return outbox.Record{}, false, err
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		d.log.Debug("outbox record already final; skipping", "outboxId", rec.ID.String(), "status", rec.Status)
		return rec, false, nil
	}
	if err := d.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return outbox.Record{}, false, err
	}
	return rec, true, nil
}

func (d *Deliverer) handleOutboxDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = d.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		d.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID.String(),
			"channel", rec.Channel,
			"attempt", attempt,
			"maxAttempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := d.now().Add(computeOutboxRetryDelay(attempt))
	if err := d.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = d.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		d.log.Error("notification outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID.String(),
			"attempt", attempt,
			"error", err,
		)
		return
	}

	d.log.Warn("notification outbox scheduled retry",
		"outboxId", rec.ID.String(),
		"channel", rec.Channel,
		"attempt", attempt,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}

// smsText keeps text messages to a single segment where possible.
func smsText(p outbox.Payload) string {
	const maxSMSLength = 160
	text := []rune(strings.TrimSpace(p.Body))
	if len(text) <= maxSMSLength {
		return string(text)
	}
	return strings.TrimSpace(string(text[:maxSMSLength-3])) + "..."
}
