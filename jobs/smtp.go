package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig locates the outgoing mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers messages through an SMTP relay. PLAIN auth is used when
// a username is configured; net/smtp upgrades to STARTTLS when offered.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
	send sendFunc
	now  func() time.Time
}

// NewSMTPMailer builds a mailer for cfg.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("jobs: smtp host required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	m := &SMTPMailer{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		from: cfg.From,
		send: smtp.SendMail,
		now:  time.Now,
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m, nil
}

// NewMailer returns an SMTPMailer when a relay host is configured and a
// LogMailer otherwise.
func NewMailer(cfg SMTPConfig, logger *slog.Logger) (Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return NewLogMailer(logger, cfg.From), nil
	}
	return NewSMTPMailer(cfg)
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.From == "" {
		msg.From = m.from
	}
	if msg.From == "" || msg.To == "" {
		return errors.New("jobs: smtp message needs sender and recipient")
	}
	if err := m.send(m.addr, m.auth, msg.From, []string{msg.To}, m.render(msg)); err != nil {
		return fmt.Errorf("jobs: smtp send to %s: %w", m.addr, err)
	}
	return nil
}

func (m *SMTPMailer) render(msg Message) []byte {
	var b strings.Builder
	header := func(k, v string) {
		// Strip CR/LF so payload values cannot add headers.
		v = strings.NewReplacer("\r", "", "\n", "").Replace(v)
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	header("From", msg.From)
	header("To", msg.To)
	header("Subject", msg.Subject)
	header("Date", m.now().UTC().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}
