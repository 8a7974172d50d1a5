package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // distroless images ship without zoneinfo

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	MailProviderResend = "resend"
	MailProviderSMTP   = "smtp"

	TestDeliverySimulate = "simulate"
	TestDeliveryLive     = "live"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPAddress string `env:"HTTP_ADDRESS" env-default:":8080"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// Trigger authorization
	CronSecret string   `env:"CRON_SECRET"`
	AdminRoles []string `env:"ADMIN_ROLES" env-separator:"," env-default:"admin"`

	// One cron spec per reminder module
	CronSpecTrainings    string        `env:"CRON_SPEC_TRAININGS" env-default:"0 7 * * *"`
	CronSpecDeadlines    string        `env:"CRON_SPEC_DEADLINES" env-default:"15 7 * * *"`
	CronSpecExaminations string        `env:"CRON_SPEC_EXAMINATIONS" env-default:"30 7 * * *"`
	JobTimeout           time.Duration `env:"REMINDER_JOB_TIMEOUT" env-default:"2m"`

	// Rendering
	Locale     string `env:"REMINDER_LOCALE" env-default:"de"`
	DateLayout string `env:"REMINDER_DATE_LAYOUT" env-default:"02.01.2006"`
	Timezone   string `env:"REMINDER_TIMEZONE" env-default:"Europe/Berlin"`

	// simulate: test runs never hit the provider; live: they send the [TEST] message
	TestDelivery string `env:"REMINDER_TEST_DELIVERY" env-default:"simulate"`

	Mail MailConfig

	// Optional period-marker cache
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Optional run-completed events
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" env-default:"reminders"`

	// Optional operator alerts
	TelegramToken       string `env:"TELEGRAM_TOKEN"`
	AlertTelegramChatID int64  `env:"ALERT_TELEGRAM_CHAT_ID"`
}

// MailConfig selects and configures the single active delivery provider.
type MailConfig struct {
	Provider       string        `env:"MAIL_PROVIDER" env-default:"resend"`
	From           string        `env:"MAIL_FROM"`
	Timeout        time.Duration `env:"MAIL_TIMEOUT" env-default:"15s"`
	ResendAPIKey   string        `env:"RESEND_API_KEY"`
	ResendEndpoint string        `env:"RESEND_ENDPOINT" env-default:"https://api.resend.com/emails"`
	SMTPHost       string        `env:"SMTP_HOST"`
	SMTPPort       int           `env:"SMTP_PORT" env-default:"587"`
	SMTPUsername   string        `env:"SMTP_USERNAME"`
	SMTPPassword   string        `env:"SMTP_PASSWORD"`
	SMTPStartTLS   bool          `env:"SMTP_STARTTLS" env-default:"true"`
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("cannot read environment: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Environment = strings.ToLower(cfg.Environment)
	cfg.Mail.Provider = strings.ToLower(cfg.Mail.Provider)
	cfg.TestDelivery = strings.ToLower(cfg.TestDelivery)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces required and mutually dependent settings.
func (c *AppConfig) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if c.Mail.From == "" {
		return fmt.Errorf("MAIL_FROM is not set")
	}

	switch c.Mail.Provider {
	case MailProviderResend:
		if c.Mail.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required for MAIL_PROVIDER=resend")
		}
	case MailProviderSMTP:
		if c.Mail.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required for MAIL_PROVIDER=smtp")
		}
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.Mail.Provider)
	}

	switch c.TestDelivery {
	case TestDeliverySimulate, TestDeliveryLive:
	default:
		return fmt.Errorf("invalid REMINDER_TEST_DELIVERY %q", c.TestDelivery)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid REMINDER_TIMEZONE: %w", err)
	}
	if c.TelegramToken != "" && c.AlertTelegramChatID == 0 {
		return fmt.Errorf("ALERT_TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	if c.CronSecret == "" && len(c.AdminRoles) == 0 {
		return fmt.Errorf("either CRON_SECRET or ADMIN_ROLES must be configured")
	}
	return nil
}

// Location returns the timezone reminder dates are evaluated in.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CronSpecs maps module keys to their schedule.
func (c *AppConfig) CronSpecs() map[string]string {
	return map[string]string{
		"trainings":    c.CronSpecTrainings,
		"deadlines":    c.CronSpecDeadlines,
		"examinations": c.CronSpecExaminations,
	}
}
