package monitor

import (
	"context"
	"fmt"
	"strings"

	gomail "github.com/go-mail/mail"
	"github.com/rs/zerolog"
)

// AlertSink interface for pluggable alert delivery.
type AlertSink interface {
	Send(ctx context.Context, subject, body string) error
}

// LogSink writes alerts to the log.
type LogSink struct {
	Log zerolog.Logger
}

func (s LogSink) Send(_ context.Context, subject, body string) error {
	s.Log.Warn().Str("alert", subject).Msg(body)
	return nil
}

// SMTPConfig holds outgoing mail settings for MailSink.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// MailSink delivers alerts over SMTP.
type MailSink struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewMailSink(cfg SMTPConfig) (*MailSink, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if len(cfg.To) == 0 {
		return nil, fmt.Errorf("at least one alert recipient is required")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.StartTLSPolicy = gomail.MandatoryStartTLS
	return &MailSink{cfg: cfg, dialer: d}, nil
}

// Message builds the outgoing mail without sending it.
func (s *MailSink) Message(subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To...)
	m.SetHeader("Subject", "[trade-clicker] "+subject)
	m.SetBody("text/plain", body)
	return m
}

func (s *MailSink) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(s.Message(subject, body)); err != nil {
		return fmt.Errorf("send alert to %s: %w", strings.Join(s.cfg.To, ","), err)
	}
	return nil
}
