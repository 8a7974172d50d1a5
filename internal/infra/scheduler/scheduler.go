package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"compliance_reminders/internal/app"
	"compliance_reminders/internal/domain/reminder"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReminderScheduler fires one cron job per reminder module.
type ReminderScheduler struct {
	cronEngine *cron.Cron
	service    app.ReminderService
	logger     *logrus.Entry
	specs      map[reminder.ModuleKey]string
	jobTimeout time.Duration
}

func NewReminderScheduler(
	service app.ReminderService,
	logger *logrus.Entry,
	specs map[reminder.ModuleKey]string, // e.g. "0 7 * * *" per module; empty disables the job
	jobTimeout time.Duration,
	loc *time.Location,
) *ReminderScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderScheduler{
		cronEngine: cron.New(cron.WithLocation(loc)),
		service:    service,
		logger:     logger,
		specs:      specs,
		jobTimeout: jobTimeout,
	}
}

// Start registers the jobs and starts the cron engine. An invalid spec or an
// unknown module is returned as an error and nothing is started.
func (s *ReminderScheduler) Start() error {
	s.logger.Info("Starting reminder scheduler...")

	keys := make([]string, 0, len(s.specs))
	for k := range s.specs {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	for _, k := range keys {
		module := reminder.ModuleKey(k)
		spec := s.specs[module]
		if spec == "" {
			s.logger.WithField("module", module).Info("No cron spec, job disabled")
			continue
		}
		if _, ok := s.service.Module(module); !ok {
			return fmt.Errorf("cannot schedule %s: %w", module, app.ErrUnknownModule)
		}
		if _, err := s.cronEngine.AddFunc(spec, func() { s.runModule(module) }); err != nil {
			return fmt.Errorf("could not add cron job for %s: %w", module, err)
		}
		s.logger.WithFields(logrus.Fields{"module": module, "spec": spec}).Info("Reminder job scheduled")
	}

	s.cronEngine.Start()
	s.logger.Info("Reminder scheduler started with jobs.")
	return nil
}

func (s *ReminderScheduler) runModule(module reminder.ModuleKey) {
	log := s.logger.WithField("module", module)
	log.Info("Cron job triggered")

	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	result, err := s.service.Run(ctx, app.RunRequest{
		Module:      module,
		Source:      reminder.TriggerCron,
		TriggeredBy: "scheduler",
	})
	if err != nil {
		log.WithError(err).Error("Reminder run could not start")
		return
	}
	entry := log.WithFields(logrus.Fields{
		"status":        result.Status,
		"emails_sent":   result.EmailsSent,
		"emails_failed": result.EmailsFailed,
	})
	if result.Status == reminder.RunStatusFailed {
		entry.Errorf("Reminder run failed: %s", result.Message)
		return
	}
	entry.Info("Reminder run completed")
}

func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Reminder scheduler gracefully stopped.")
}
