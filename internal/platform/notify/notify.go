// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

/*
Package notify defines the outbound notification transports used by the
auth flows.

It covers three delivery concerns:

  - Email: password reset links and security alerts.
  - SMS: login verification codes and device verification codes.
  - Push: high-priority security notices to the user's trusted devices.

The package only defines the transport contracts plus logging fallbacks;
real providers (SMTP relay, SMS gateway, push broker) are wired in at the
composition root. Auth flows treat every delivery as best-effort: a failed
notification never fails the underlying operation.
*/
package notify

import (
	"context"
	"log/slog"
)

// # Transport Contracts

// EmailTransport delivers transactional email.
type EmailTransport interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SmsTransport delivers short text messages.
type SmsTransport interface {
	SendSMS(ctx context.Context, phoneNumber, message string) error
}

// NotificationDispatch fans a security notice out to a user across their
// registered channels.
type NotificationDispatch interface {
	NotifyUser(ctx context.Context, userID, title, body string) error
}

// # Logging Fallbacks

// LogEmailTransport writes email payload metadata to the structured log
// instead of sending. Used in development and as the default transport.
type LogEmailTransport struct {
	logger *slog.Logger
}

// NewLogEmailTransport creates a logging email transport.
func NewLogEmailTransport(logger *slog.Logger) *LogEmailTransport {
	return &LogEmailTransport{logger: logger}
}

// SendEmail logs the message instead of delivering it. The body is logged
// at debug level only since reset links are sensitive.
func (transport *LogEmailTransport) SendEmail(ctx context.Context, to, subject, body string) error {
	transport.logger.InfoContext(ctx, "email_dispatched",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	transport.logger.DebugContext(ctx, "email_body", slog.String("body", body))
	return nil
}

// LogSmsTransport writes SMS payload metadata to the structured log
// instead of sending.
type LogSmsTransport struct {
	logger *slog.Logger
}

// NewLogSmsTransport creates a logging SMS transport.
func NewLogSmsTransport(logger *slog.Logger) *LogSmsTransport {
	return &LogSmsTransport{logger: logger}
}

// SendSMS logs the message instead of delivering it.
func (transport *LogSmsTransport) SendSMS(ctx context.Context, phoneNumber, message string) error {
	transport.logger.InfoContext(ctx, "sms_dispatched",
		slog.String("phone", maskPhone(phoneNumber)),
	)
	transport.logger.DebugContext(ctx, "sms_body", slog.String("message", message))
	return nil
}

// LogDispatch logs user notifications instead of pushing them.
type LogDispatch struct {
	logger *slog.Logger
}

// NewLogDispatch creates a logging notification dispatcher.
func NewLogDispatch(logger *slog.Logger) *LogDispatch {
	return &LogDispatch{logger: logger}
}

// NotifyUser logs the notification instead of delivering it.
func (dispatch *LogDispatch) NotifyUser(ctx context.Context, userID, title, body string) error {
	dispatch.logger.InfoContext(ctx, "user_notification_dispatched",
		slog.String("user_id", userID),
		slog.String("title", title),
		slog.String("body", body),
	)
	return nil
}

// maskPhone keeps only the last four digits of a phone number for logging.
func maskPhone(phoneNumber string) string {
	if len(phoneNumber) <= 4 {
		return "****"
	}
	return "****" + phoneNumber[len(phoneNumber)-4:]
}
