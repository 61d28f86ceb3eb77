package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/SinaHo/fyra-signin-backend/internal/config"
)

// Sender delivers sign-in links to an inbox.
type Sender interface {
	SendSignInLink(ctx context.Context, toEmail, link string) error
}

// LogMailer writes the link to the log instead of mailing it. Development only.
type LogMailer struct {
	logger *zap.SugaredLogger
}

func NewLogMailer(logger *zap.SugaredLogger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendSignInLink(_ context.Context, toEmail, link string) error {
	m.logger.Infow("sign-in link (log mailer, not delivered)", "to", toEmail, "link", link)
	return nil
}

// FromConfig picks the Sender named by cfg.Driver.
func FromConfig(cfg config.MailConfig, logger *zap.SugaredLogger) (Sender, error) {
	switch cfg.Driver {
	case "log", "":
		return NewLogMailer(logger), nil
	case "resend":
		return NewResendMailer(cfg.APIKey, cfg.From, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}
