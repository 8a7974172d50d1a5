package mail

import (
	"fmt"

	"compliance_reminders/internal/domain/mailer"
	"compliance_reminders/internal/infra/config"
)

// NewSender returns the provider selected by MAIL_PROVIDER.
func NewSender(cfg config.MailConfig) (mailer.Sender, error) {
	switch cfg.Provider {
	case config.MailProviderResend:
		return NewResendSender(cfg.ResendAPIKey, cfg.ResendEndpoint, cfg.Timeout), nil
	case config.MailProviderSMTP:
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPStartTLS, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}
