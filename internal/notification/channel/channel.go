// Package channel holds the external delivery channels of the notification
// dispatcher. Channels without credentials fall back to a logging sender.
package channel

import (
	"context"

	"vehicle_inspection_backend/platform/config"
	"vehicle_inspection_backend/platform/logger"
)

type EmailSender interface {
	SendEmail(ctx context.Context, toEmail, subject, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, toNumber, body string) error
}

// NewEmailSender returns the SMTP sender when SMTP is configured.
func NewEmailSender(cfg config.SMTPConfig, log *logger.Logger) EmailSender {
	if !cfg.IsSMTPEnabled() {
		log.Info("smtp not configured; email notifications are simulated")
		return LogSender{log: log}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
}

// NewSMSSender returns the Twilio sender when Twilio is configured.
func NewSMSSender(cfg config.SMSConfig, log *logger.Logger) SMSSender {
	if !cfg.IsSMSEnabled() {
		log.Info("twilio not configured; sms notifications are simulated")
		return LogSender{log: log}
	}
	return NewTwilioSender(cfg.GetTwilioAccountSID(), cfg.GetTwilioAuthToken(), cfg.GetTwilioFromNumber())
}

// LogSender records the message instead of delivering it.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) LogSender {
	return LogSender{log: log}
}

func (s LogSender) SendEmail(ctx context.Context, toEmail, subject, body string) error {
	s.log.WithContext(ctx).Info("simulated email delivery", "to", toEmail, "subject", subject, "bodyLength", len(body))
	return nil
}

func (s LogSender) SendSMS(ctx context.Context, toNumber, body string) error {
	s.log.WithContext(ctx).Info("simulated sms delivery", "to", toNumber, "bodyLength", len(body))
	return nil
}
