package mail

import (
	"net/mail"
	"testing"

	"compliance_reminders/internal/infra/config"
)

func mustAddress(t *testing.T, s string) *mail.Address {
	t.Helper()
	a, err := mail.ParseAddress(s)
	if err != nil {
		t.Fatalf("ParseAddress(%q): %v", s, err)
	}
	return a
}

func mailConfig(provider string) config.MailConfig {
	return config.MailConfig{Provider: provider, ResendAPIKey: "k", SMTPHost: "localhost", SMTPPort: 25}
}

func mustProvider(t *testing.T, provider, wantName string) {
	t.Helper()
	s, err := NewSender(mailConfig(provider))
	if err != nil {
		t.Fatalf("NewSender(%s) error = %v", provider, err)
	}
	if s.Name() != wantName {
		t.Errorf("Name() = %s, want %s", s.Name(), wantName)
	}
}
