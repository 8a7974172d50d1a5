package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"compliance_reminders/internal/app"
	"compliance_reminders/internal/domain/reminder"
	"compliance_reminders/internal/infra/cache"
	"compliance_reminders/internal/infra/config"
	idb "compliance_reminders/internal/infra/database"
	"compliance_reminders/internal/infra/events"
	"compliance_reminders/internal/infra/httpapi"
	"compliance_reminders/internal/infra/logger"
	"compliance_reminders/internal/infra/mail"
	"compliance_reminders/internal/infra/scheduler"
	"compliance_reminders/internal/infra/telegram"

	"golang.org/x/text/language"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLog := logger.ForComponent("main")
	mainLog.Infof("Configuration loaded. LogLevel: %s, Environment: %s, MailProvider: %s", cfg.LogLevel, cfg.Environment, cfg.Mail.Provider)

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLog.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	mainLog.Info("Database connection established successfully.")

	candidates, err := idb.NewPostgresCandidateSources(db)
	if err != nil {
		mainLog.Fatalf("Could not build candidate sources: %v", err)
	}
	reminderRepo := idb.NewPostgresReminderRepository(db)
	templateRepo := idb.NewPostgresTemplateRepository(db)
	directoryRepo := idb.NewPostgresDirectoryRepository(db)

	sender, err := mail.NewSender(cfg.Mail)
	if err != nil {
		mainLog.Fatalf("Could not create mail sender: %v", err)
	}

	deps := app.ReminderDeps{
		Candidates: candidates,
		Templates:  templateRepo,
		Settings:   templateRepo,
		Runs:       reminderRepo,
		Logs:       reminderRepo,
		People:     directoryRepo,
		Mailer:     sender,
	}

	if cfg.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.NewRedisClient(pingCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			// The audit log alone is enough for the idempotency gate.
			mainLog.WithError(err).Warn("Redis unavailable, period markers disabled")
		} else {
			defer rdb.Close()
			deps.Markers = cache.NewRedisPeriodMarkers(rdb)
			mainLog.Info("Period marker cache enabled.")
		}
	}

	if cfg.AMQPURL != "" {
		publisher, closeAMQP, err := events.Connect(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			mainLog.WithError(err).Warn("AMQP unavailable, run events disabled")
		} else {
			defer closeAMQP()
			deps.Events = publisher
			mainLog.Infof("Run events published to exchange %s.", cfg.AMQPExchange)
		}
	}

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewAlertBot(cfg.TelegramToken)
		if err != nil {
			mainLog.WithError(err).Warn("Telegram alerts disabled")
		} else {
			deps.Alerts = app.NewAlertService(bot, cfg.AlertTelegramChatID, logger.ForComponent("alerts"))
			mainLog.Info("Telegram failure alerts enabled.")
		}
	}

	loc := cfg.Location()
	reminderService := app.NewReminderService(deps, app.ReminderOptions{
		From:             cfg.Mail.From,
		Location:         loc,
		Locale:           language.Make(cfg.Locale),
		DateLayout:       cfg.DateLayout,
		LiveTestDelivery: cfg.TestDelivery == config.TestDeliveryLive,
	}, logger.ForComponent("reminders"))
	authorizer := app.NewTriggerAuthorizer(directoryRepo, cfg.CronSecret, cfg.AdminRoles)

	specs := make(map[reminder.ModuleKey]string)
	for module, spec := range cfg.CronSpecs() {
		specs[reminder.ModuleKey(module)] = spec
	}
	reminderScheduler := scheduler.NewReminderScheduler(reminderService, logger.ForComponent("scheduler"), specs, cfg.JobTimeout, loc)
	if err := reminderScheduler.Start(); err != nil {
		mainLog.Fatalf("Could not start scheduler: %v", err)
	}

	httpLog := logger.ForComponent("http")
	server := httpapi.NewServer(cfg.HTTPAddress, httpapi.NewRouter(httpLog, authorizer, reminderService, reminderRepo, idb.ErrRunNotFound), httpLog)
	serverErr := server.Start()

	mainLog.Info("Application setup complete. Scheduler and HTTP server are running.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			mainLog.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}

	mainLog.Info("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLog.WithError(err).Error("HTTP server shutdown failed")
	}
	reminderScheduler.Stop()
	mainLog.Info("Application shut down gracefully.")
}
