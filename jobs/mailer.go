package jobs

import (
	"context"
	"log/slog"
)

// Message is an outgoing email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer stands in for SMTP when no mail host is configured. The whole
// message, credentials included, is written to the log once at WARN so an
// operator can deliver it by hand.
type LogMailer struct {
	logger *slog.Logger
	from   string
}

// NewLogMailer constructs a LogMailer sending as from.
func NewLogMailer(logger *slog.Logger, from string) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger, from: from}
}

// Send implements Mailer.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = m.from
	}
	m.logger.WarnContext(ctx, "smtp not configured, mail logged for manual delivery",
		slog.String("from", msg.From),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}
