// Delivery of one-time sign-in codes.
//
// Environment:
//   - MAIL_PROVIDER: "log" (development, prints the code) or "resend"
//   - RESEND_API_KEY: Resend API key
//   - MAIL_FROM: sender address

package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/keygate/backend/internal/config"
	"github.com/keygate/backend/internal/logging"
	tmpl "github.com/keygate/backend/internal/template"
	"github.com/resend/resend-go/v2"
)

var ErrDelivery = errors.New("mail delivery failed")

// CodeMailer delivers a rendered code message to one address.
type CodeMailer interface {
	SendCode(ctx context.Context, to string, data tmpl.CodeData) error
}

// emailSender is the part of the Resend client used here.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendMailer struct {
	emails emailSender
	from   string
	logger logging.Logger
}

func NewResendMailer(cfg config.MailConfig, logger logging.Logger) (*ResendMailer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("from email is required")
	}

	client := resend.NewClient(cfg.APIKey)
	return &ResendMailer{
		emails: client.Emails,
		from:   cfg.From,
		logger: logger.With("module", "resend_mailer"),
	}, nil
}

func (m *ResendMailer) SendCode(ctx context.Context, to string, data tmpl.CodeData) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: tmpl.CodeSubject,
		Text:    tmpl.RenderBody(tmpl.CodeTextBody, data),
		Html:    tmpl.RenderBody(tmpl.CodeHTMLBody, data),
	}

	sent, err := m.emails.SendWithContext(ctx, params)
	if err != nil {
		m.logger.Error(ctx, "failed to send code email", "err", err)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	m.logger.Info(ctx, "code email sent", "message_id", sent.Id)
	return nil
}

// LogMailer writes the code to the log instead of sending it. Development only.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "log_mailer")}
}

func (m *LogMailer) SendCode(ctx context.Context, to string, data tmpl.CodeData) error {
	m.logger.Warn(ctx, "two-factor code (log mailer, do not use in production)",
		"to", to, "code", data.Code, "expires_at", data.ExpiresAt)
	return nil
}

// NewCodeMailer picks the implementation named by cfg.Provider.
func NewCodeMailer(cfg config.MailConfig, logger logging.Logger) (CodeMailer, error) {
	switch cfg.Provider {
	case "", "log":
		return NewLogMailer(logger), nil
	case "resend":
		return NewResendMailer(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown MAIL_PROVIDER %q", cfg.Provider)
	}
}
