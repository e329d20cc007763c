package mailer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	gomail "gopkg.in/mail.v2"
)

// Email is a plain-text outbound message.
type Email struct {
	From    string
	To      string
	Subject string
	Text    string
}

// SMTPConfig configures the SMTP transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// dialer is the subset of *gomail.Dialer used by SMTP.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP sends mail through an SMTP relay. Every failure (refused connection,
// auth, rejected recipient) surfaces as an error from Send.
type SMTP struct {
	dialer dialer
}

// NewSMTP creates an SMTP transport.
func NewSMTP(cfg SMTPConfig) *SMTP {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}
	return &SMTP{dialer: d}
}

// Send delivers one message. The dialer has no context support, so ctx is only
// checked before dialing.
func (s *SMTP) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(buildMessage(e)); err != nil {
		return errors.Wrapf(err, "smtp send to %s", e.To)
	}
	return nil
}

func buildMessage(e Email) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", e.From)
	m.SetHeader("To", e.To)
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/plain", e.Text)
	return m
}

// LogTransport logs the message instead of sending it.
type LogTransport struct {
	log *logrus.Entry
}

func NewLogTransport(log *logrus.Entry) *LogTransport {
	return &LogTransport{log: log}
}

func (t *LogTransport) Send(_ context.Context, e Email) error {
	t.log.WithFields(logrus.Fields{
		"from":    e.From,
		"to":      e.To,
		"subject": e.Subject,
	}).Info("email (log transport)")
	return nil
}
