// Package mail delivers one-time passwords by email.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmgate/internal/logging"
	gomail "github.com/wneessen/go-mail"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	// Strict enables certificate verification.
	Strict bool
	// Required disables the LogSender fallback.
	Required bool
}

// ErrNotConfigured is returned by New when SMTP is required but incomplete.
var ErrNotConfigured = errors.New("smtp is required but not configured")

// Complete reports whether every field needed to reach the server is set.
func (c SMTPConfig) Complete() bool {
	return c.Host != "" && c.Port != 0 && c.User != "" && c.Password != "" && c.From != ""
}

const dialTimeout = 5 * time.Second

// New returns an SMTP sender when cfg is complete. An incomplete cfg yields a
// LogSender, or ErrNotConfigured when cfg.Required is set, so live codes never
// end up in logs.
func New(cfg SMTPConfig, logger logging.Logger) (Sender, error) {
	if !cfg.Complete() {
		if cfg.Required {
			return nil, ErrNotConfigured
		}
		logger.Warn(context.Background(), "smtp is not configured, emails will be logged instead of sent")
		return &LogSender{logger: logger}, nil
	}
	return &SMTPSender{cfg: cfg}, nil
}

// dialAndSend is a seam for tests.
var dialAndSend = func(ctx context.Context, c *gomail.Client, msgs ...*gomail.Msg) error {
	return c.DialAndSendWithContext(ctx, msgs...)
}

type SMTPSender struct {
	cfg SMTPConfig
}

func (s *SMTPSender) options() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.User),
		gomail.WithPassword(s.cfg.Password),
		gomail.WithTimeout(dialTimeout),
		gomail.WithTLSConfig(&tls.Config{
			ServerName:         s.cfg.Host,
			InsecureSkipVerify: !s.cfg.Strict,
			MinVersion:         tls.VersionTLS12,
		}),
	}
	// 465 is implicit TLS, everything else negotiates STARTTLS when offered.
	if s.cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	return opts
}

func (s *SMTPSender) message(m Message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, m.HTML)
	}
	return msg, nil
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	msg, err := s.message(m)
	if err != nil {
		return err
	}

	c, err := gomail.NewClient(s.cfg.Host, s.options()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := dialAndSend(ctx, c, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender writes messages to the log. It stands in for SMTP in development.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	s.logger.Warn(ctx, "email not sent, smtp disabled", "to", m.To, "subject", m.Subject, "body", m.Text)
	return nil
}
