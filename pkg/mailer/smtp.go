package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"

	"github.com/noah-isme/lawmon-api/pkg/config"
)

// Sender abstracts the transport so the SMTP dialer can be swapped in tests.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer delivers plain-text mail through an SMTP relay, rate limited per process.
type SMTPMailer struct {
	sender  Sender
	from    string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewSMTPMailer builds a mailer from configuration.
func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return NewSMTPMailerWithSender(dialer, from, cfg.RatePerSecond, cfg.Burst, logger)
}

// NewSMTPMailerWithSender wires an explicit transport.
func NewSMTPMailerWithSender(sender Sender, from string, perSecond float64, burst int, logger *zap.Logger) *SMTPMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &SMTPMailer{
		sender:  sender,
		from:    from,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Send delivers a single message. It blocks on the rate limiter until ctx is done.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient is required")
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mail rate limit: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.sender.DialAndSend(msg); err != nil {
		m.logger.Warn("smtp send failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	m.logger.Debug("smtp message sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// LogMailer records messages instead of sending them. Used when SMTP is disabled.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message and reports success.
func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("email delivery simulated", zap.String("to", to), zap.String("subject", subject), zap.Int("body_bytes", len(body)))
	return nil
}
