package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/reminders?sslmode=disable")
	t.Setenv("MAIL_FROM", "Compliance <noreply@example.com>")
	t.Setenv("RESEND_API_KEY", "re_test")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPAddress != ":8080" || cfg.Mail.Provider != MailProviderResend || cfg.TestDelivery != TestDeliverySimulate {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.JobTimeout != 2*time.Minute || cfg.Mail.Timeout != 15*time.Second {
		t.Errorf("timeouts = %s / %s", cfg.JobTimeout, cfg.Mail.Timeout)
	}
	if !reflect.DeepEqual(cfg.AdminRoles, []string{"admin"}) {
		t.Errorf("admin roles = %v", cfg.AdminRoles)
	}
	if cfg.Location().String() != "Europe/Berlin" {
		t.Errorf("location = %s", cfg.Location())
	}
	specs := cfg.CronSpecs()
	if len(specs) != 3 || specs["examinations"] != "30 7 * * *" {
		t.Errorf("cron specs = %v", specs)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("MAIL_PROVIDER", "SMTP")
	t.Setenv("SMTP_HOST", "mail.example.com")
	t.Setenv("ADMIN_ROLES", "admin,compliance_officer")
	t.Setenv("REMINDER_TEST_DELIVERY", "Live")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mail.Provider != MailProviderSMTP || cfg.Mail.SMTPPort != 587 || !cfg.Mail.SMTPStartTLS {
		t.Errorf("mail config = %+v", cfg.Mail)
	}
	if cfg.TestDelivery != TestDeliveryLive || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.AdminRoles, []string{"admin", "compliance_officer"}) {
		t.Errorf("admin roles = %v", cfg.AdminRoles)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *AppConfig {
		return &AppConfig{
			DatabaseURL:  "postgres://x",
			Timezone:     "UTC",
			TestDelivery: TestDeliverySimulate,
			AdminRoles:   []string{"admin"},
			Mail:         MailConfig{Provider: MailProviderResend, From: "a@example.com", ResendAPIKey: "k"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{"valid", func(c *AppConfig) {}, ""},
		{"missing database", func(c *AppConfig) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"missing sender", func(c *AppConfig) { c.Mail.From = "" }, "MAIL_FROM"},
		{"resend without key", func(c *AppConfig) { c.Mail.ResendAPIKey = "" }, "RESEND_API_KEY"},
		{"smtp without host", func(c *AppConfig) { c.Mail.Provider = MailProviderSMTP }, "SMTP_HOST"},
		{"unknown provider", func(c *AppConfig) { c.Mail.Provider = "pigeon" }, "MAIL_PROVIDER"},
		{"bad test delivery", func(c *AppConfig) { c.TestDelivery = "maybe" }, "REMINDER_TEST_DELIVERY"},
		{"bad timezone", func(c *AppConfig) { c.Timezone = "Mars/Base" }, "REMINDER_TIMEZONE"},
		{"telegram without chat", func(c *AppConfig) { c.TelegramToken = "t" }, "ALERT_TELEGRAM_CHAT_ID"},
		{"no trigger auth", func(c *AppConfig) { c.AdminRoles = nil }, "CRON_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
