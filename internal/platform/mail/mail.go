// Copyright (c) 2026 Keysmith. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail provides outbound email delivery for account lifecycle notices.

It abstracts the transport behind the [Sender] interface so that domain
services depend on a contract, never on SMTP details. Two implementations
are provided:

  - SMTPSender: Production delivery via wneessen/go-mail.
  - LogSender: Development/test delivery that writes the message to the
    structured log instead of the network.

The package deliberately knows nothing about tokens or accounts — callers
compose the full message.
*/
package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"
)

// Message carries a single outbound email.
type Message struct {
	// To is the recipient address.
	To string
	// Subject is the full subject line (including any configured tag).
	Subject string
	// Body is the plain-text body.
	Body string
}

// Sender is the outbound notification contract consumed by domain services.
type Sender interface {
	// Send dispatches one message. Implementations must not retry; failures
	// are surfaced synchronously to the caller.
	Send(ctx context.Context, message Message) error
}

// # SMTP Delivery

// SMTPSender delivers messages over SMTP using wneessen/go-mail.
type SMTPSender struct {
	client *gomail.Client
	from   string
}

// NewSMTPSender constructs a production mail sender.
//
// # Parameters
//   - host, port: SMTP relay endpoint.
//   - username, password: PLAIN auth credentials (empty username disables auth).
//   - fromAddress: Envelope and header From address.
func NewSMTPSender(host string, port int, username, password, fromAddress string) (*SMTPSender, error) {
	options := []gomail.Option{
		gomail.WithPort(port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}

	if username != "" {
		options = append(options,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(username),
			gomail.WithPassword(password),
		)
	}

	client, err := gomail.NewClient(host, options...)
	if err != nil {
		return nil, fmt.Errorf("mail: failed to create SMTP client: %w", err)
	}

	return &SMTPSender{client: client, from: fromAddress}, nil
}

// Send dispatches the message over the configured SMTP relay.
func (sender *SMTPSender) Send(ctx context.Context, message Message) error {
	msg := gomail.NewMsg()

	if err := msg.From(sender.from); err != nil {
		return fmt.Errorf("mail: invalid from address: %w", err)
	}
	if err := msg.To(message.To); err != nil {
		return fmt.Errorf("mail: invalid recipient address: %w", err)
	}

	msg.Subject(message.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, message.Body)

	if err := sender.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail: smtp send failed: %w", err)
	}

	return nil
}

// # Development Delivery

// LogSender writes messages to the structured log instead of the network.
//
// Used when no SMTP host is configured, so that local development and tests
// never depend on a mail relay.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender constructs a log-backed sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message at INFO level.
func (sender *LogSender) Send(ctx context.Context, message Message) error {
	sender.logger.InfoContext(ctx, "outbound_email",
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
		slog.String("body", message.Body),
	)
	return nil
}
