// internal/app/reminder_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"compliance_reminders/internal/domain/directory"
	"compliance_reminders/internal/domain/mailer"
	"compliance_reminders/internal/domain/reminder"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

var ErrUnknownModule = errors.New("unknown reminder module")

const (
	MsgNoItems          = "No items require attention"
	MsgNoRecipients     = "No recipients configured"
	MsgNoTemplate       = "No active reminder template configured"
	MsgScheduleDisabled = "Reminder schedule is disabled"
	MsgWeekend          = "Weekend, no reminders sent"
)

// Outcome separates "nothing to do", "failed before sending" and "send attempted".
type Outcome string

const (
	OutcomeSkipped        Outcome = "skipped"
	OutcomeSent           Outcome = "sent"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
	OutcomeError          Outcome = "error"
)

// ReminderService runs the reminder engine for any registered module.
type ReminderService interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
	Module(key reminder.ModuleKey) (reminder.Module, bool)
}

// PeriodMarkerCache is a fast path in front of the audit log for the idempotency gate.
type PeriodMarkerCache interface {
	IsMarked(ctx context.Context, module reminder.ModuleKey, periodKey string) (bool, error)
	Mark(ctx context.Context, module reminder.ModuleKey, periodKey string) error
}

// RunEventPublisher announces finished runs to other services.
type RunEventPublisher interface {
	PublishRunCompleted(ctx context.Context, event reminder.RunCompletedEvent) error
}

// RunAlerter is told about failed runs.
type RunAlerter interface {
	RunFailed(title string, result *RunResult)
}

// RunRequest is one trigger of one module.
type RunRequest struct {
	Module      reminder.ModuleKey
	Source      reminder.TriggerSource
	TriggeredBy string
	TestMode    bool
}

// DeliveryResult describes the single send attempt of a run.
type DeliveryResult struct {
	Recipients []string
	Mode       reminder.DeliveryMode
	Source     RecipientSource
	Status     reminder.DeliveryStatus
	ProviderID string
	Error      string
}

// RunResult is what the caller of a run gets back.
type RunResult struct {
	RunID        uuid.UUID
	Module       reminder.ModuleKey
	PeriodKey    string
	Status       reminder.RunStatus
	Outcome      Outcome
	Success      bool
	EmailsSent   int
	EmailsFailed int
	Message      string
	Info         string
	Results      []DeliveryResult
}

// ReminderDeps are the collaborators of the engine. Markers, Events and
// Alerts are optional.
type ReminderDeps struct {
	Candidates map[reminder.ModuleKey]reminder.CandidateSource
	Templates  reminder.TemplateRepository
	Settings   reminder.SettingsRepository
	Runs       reminder.RunRepository
	Logs       reminder.LogRepository
	People     directory.Repository
	Mailer     mailer.Sender
	Markers    PeriodMarkerCache
	Events     RunEventPublisher
	Alerts     RunAlerter
}

// ReminderOptions are the process-wide settings of the engine.
type ReminderOptions struct {
	Modules          []reminder.Module
	From             string
	Location         *time.Location
	Locale           language.Tag
	DateLayout       string
	LiveTestDelivery bool
	Clock            func() time.Time
}

// ReminderServiceImpl implements the ReminderService interface.
type ReminderServiceImpl struct {
	deps    ReminderDeps
	opts    ReminderOptions
	modules map[reminder.ModuleKey]reminder.Module
	logger  *logrus.Entry
}

func NewReminderService(deps ReminderDeps, opts ReminderOptions, logger *logrus.Entry) *ReminderServiceImpl {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Locale == language.Und {
		opts.Locale = language.German
	}
	if len(opts.Modules) == 0 {
		opts.Modules = reminder.Modules()
	}

	modules := make(map[reminder.ModuleKey]reminder.Module, len(opts.Modules))
	for _, m := range opts.Modules {
		modules[m.Key] = m
	}
	return &ReminderServiceImpl{deps: deps, opts: opts, modules: modules, logger: logger}
}

func (s *ReminderServiceImpl) Module(key reminder.ModuleKey) (reminder.Module, bool) {
	m, ok := s.modules[key]
	return m, ok
}

// Run executes one reminder run. The returned error is only set for requests
// that cannot start at all; every other outcome is described by the result.
func (s *ReminderServiceImpl) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	module, ok := s.modules[req.Module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, req.Module)
	}
	if _, ok := s.deps.Candidates[module.Key]; !ok {
		return nil, fmt.Errorf("%w: no candidate source for %s", ErrUnknownModule, module.Key)
	}
	if req.TestMode {
		req.Source = reminder.TriggerTest
	}

	log := s.logger.WithFields(logrus.Fields{
		"module":  module.Key,
		"trigger": req.Source,
		"test":    req.TestMode,
	})
	now := s.opts.Clock().In(s.opts.Location)

	settings, err := s.loadSettings(ctx, module.Key)
	if err != nil {
		log.WithError(err).Error("Failed to load module settings")
		result := errorResult(module.Key, "", err)
		s.afterRun(module, req, result, log)
		return result, nil
	}

	if req.Source == reminder.TriggerCron {
		if !settings.Enabled {
			log.Info("Schedule disabled, skipping run")
			return skippedResult(module.Key, "", MsgScheduleDisabled), nil
		}
		if settings.SkipWeekends && isWeekend(now) {
			log.Info("Weekend, skipping run")
			return skippedResult(module.Key, "", MsgWeekend), nil
		}
	}

	periodKey := PeriodKey(settings.Frequency, now)
	log = log.WithField("period_key", periodKey)

	if !req.TestMode {
		sent, err := s.alreadySent(ctx, module.Key, periodKey, log)
		if err != nil {
			log.WithError(err).Error("Idempotency check failed")
			result := errorResult(module.Key, periodKey, err)
			s.afterRun(module, req, result, log)
			return result, nil
		}
		if sent {
			log.Info("Reminders already sent for this period, skipping")
			return skippedResult(module.Key, periodKey, fmt.Sprintf("Reminders already sent for period %s", periodKey)), nil
		}
	}

	run := &reminder.Run{
		ID:          uuid.New(),
		Module:      module.Key,
		PeriodKey:   periodKey,
		Source:      req.Source,
		TriggeredBy: req.TriggeredBy,
		IsTest:      req.TestMode,
		Status:      reminder.RunStatusRunning,
		StartedAt:   now,
	}
	log = log.WithField("run_id", run.ID)

	// The run row is written right before delivery, or when the run fails.
	// Runs skipped during selection leave no row.
	persisted := false
	persist := func(ctx context.Context) error {
		if persisted {
			return nil
		}
		if err := s.deps.Runs.CreateRun(ctx, run); err != nil {
			return fmt.Errorf("failed to create run record: %w", err)
		}
		persisted = true
		return nil
	}

	result := s.execute(ctx, module, settings, run, now, req.TestMode, persist, log)

	if result.Status != reminder.RunStatusSkipped {
		if err := persist(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Error("Failed to create run record")
		}
	}
	if persisted {
		result.RunID = run.ID
		run.Status = result.Status
		run.EmailsSent = result.EmailsSent
		run.EmailsFailed = result.EmailsFailed
		run.FinishedAt = sql.NullTime{Time: s.opts.Clock(), Valid: true}
		if result.Outcome == OutcomeError || result.Outcome == OutcomeDeliveryFailed {
			run.Error = sql.NullString{String: result.Message, Valid: true}
		}
		if err := s.deps.Runs.FinishRun(context.WithoutCancel(ctx), run); err != nil {
			log.WithError(err).Error("Failed to finish run record")
		}
	}

	log.WithFields(logrus.Fields{
		"status":        result.Status,
		"emails_sent":   result.EmailsSent,
		"emails_failed": result.EmailsFailed,
	}).Info("Reminder run finished")

	s.afterRun(module, req, result, log)
	return result, nil
}

// execute covers selecting through logging for a run that passed the gate.
func (s *ReminderServiceImpl) execute(ctx context.Context, module reminder.Module, settings reminder.ModuleSettings, run *reminder.Run, now time.Time, testMode bool, persist func(context.Context) error, log *logrus.Entry) *RunResult {
	var (
		templates  []*reminder.Template
		candidates []*reminder.CandidateItem
		people     []*directory.Person
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		templates, err = s.deps.Templates.ListActive(gctx, module.Key)
		if err != nil {
			return fmt.Errorf("failed to load templates: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		candidates, err = s.deps.Candidates[module.Key].ListCandidates(gctx)
		if err != nil {
			return fmt.Errorf("failed to load candidates: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		people, err = s.deps.People.ListAll(gctx)
		if err != nil {
			return fmt.Errorf("failed to load directory: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Reference data fetch failed")
		return errorResult(module.Key, run.PeriodKey, err)
	}

	defaultTmpl := reminder.DefaultTemplate(templates)
	if module.RequiresTemplate && defaultTmpl == nil {
		log.Warn("No active template, skipping run")
		return skippedResult(module.Key, run.PeriodKey, MsgNoTemplate)
	}

	due := SelectDue(candidates, now, SelectionPolicy{
		Mode:          module.ThresholdMode,
		Offsets:       settings.DayOffsets,
		ModuleDefault: settings.DefaultDaysBefore,
		Templates:     templates,
		Locale:        s.opts.Locale,
	})
	log.WithFields(logrus.Fields{"candidates": len(candidates), "due": len(due)}).Debug("Eligibility evaluated")
	if len(due) == 0 {
		return skippedResult(module.Key, run.PeriodKey, MsgNoItems)
	}

	recipients := ResolveRecipients(settings.Recipients, due, defaultTmpl, indexPeople(people))
	if len(recipients.Emails) == 0 {
		log.Info("No recipients resolved, skipping run")
		result := skippedResult(module.Key, run.PeriodKey, "")
		result.Info = MsgNoRecipients
		return result
	}

	subject, body := settings.SubjectTemplate, settings.BodyTemplate
	if defaultTmpl != nil {
		if subject == "" {
			subject = defaultTmpl.Subject
		}
		if body == "" {
			body = defaultTmpl.Body
		}
	}
	rendered, err := Render(RenderInput{
		Title:      module.Title,
		Subject:    subject,
		Body:       body,
		Due:        due,
		Today:      now,
		DateLayout: s.opts.DateLayout,
		TestMode:   testMode,
	})
	if err != nil {
		log.WithError(err).Error("Rendering failed")
		return errorResult(module.Key, run.PeriodKey, err)
	}

	from := s.opts.From
	if settings.Sender != "" {
		from = settings.Sender
	}
	env := BuildEnvelope(recipients.Mode, recipients.Emails, addressOf(from))
	msg := &mailer.Message{
		From:    from,
		To:      env.To,
		CC:      env.CC,
		BCC:     env.BCC,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
	}

	if err := persist(ctx); err != nil {
		log.WithError(err).Error("Run record not written, nothing sent")
		return errorResult(module.Key, run.PeriodKey, err)
	}
	log.Info("Reminder run sending")

	providerID, sendErr := s.deliver(ctx, msg, testMode)
	if ctxErr := ctx.Err(); ctxErr != nil {
		// The platform gave up on us; leave no audit row so the next trigger retries.
		log.WithError(ctxErr).Error("Run aborted during delivery")
		return errorResult(module.Key, run.PeriodKey, ctxErr)
	}

	delivery := DeliveryResult{
		Recipients: recipients.Emails,
		Mode:       recipients.Mode,
		Source:     recipients.Source,
		Status:     reminder.DeliverySent,
		ProviderID: providerID,
	}
	if sendErr != nil {
		delivery.Status = reminder.DeliveryFailed
		delivery.Error = sendErr.Error()
	}

	// A lost audit write still leaves the finished run row for the gate.
	entries := auditEntries(module, run, delivery, rendered)
	if err := s.deps.Logs.AppendLogs(ctx, entries); err != nil {
		log.WithError(err).Error("Failed to write audit log")
	}

	result := &RunResult{
		Module:    module.Key,
		PeriodKey: run.PeriodKey,
		Results:   []DeliveryResult{delivery},
	}
	if sendErr != nil {
		log.WithError(sendErr).Error("Delivery failed")
		result.Status = reminder.RunStatusFailed
		result.Outcome = OutcomeDeliveryFailed
		result.EmailsFailed = len(recipients.Emails)
		result.Message = fmt.Sprintf("Delivery failed: %v", sendErr)
		return result
	}

	log.WithFields(logrus.Fields{"provider_id": providerID, "recipients": len(recipients.Emails)}).Info("Summary email sent")
	result.Status = reminder.RunStatusSuccess
	result.Outcome = OutcomeSent
	result.Success = true
	result.EmailsSent = len(recipients.Emails)
	result.Message = fmt.Sprintf("Reminder sent for %d item(s)", len(due))
	return result
}

func (s *ReminderServiceImpl) loadSettings(ctx context.Context, module reminder.ModuleKey) (reminder.ModuleSettings, error) {
	raw, err := s.deps.Settings.GetModuleSettings(ctx, module)
	if err != nil {
		return reminder.ModuleSettings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	return reminder.ParseSettings(raw)
}

// alreadySent asks the marker cache first, then the audit log and the run
// records. Cache trouble never blocks a run.
func (s *ReminderServiceImpl) alreadySent(ctx context.Context, module reminder.ModuleKey, periodKey string, log *logrus.Entry) (bool, error) {
	if s.deps.Markers != nil {
		marked, err := s.deps.Markers.IsMarked(ctx, module, periodKey)
		if err != nil {
			log.WithError(err).Warn("Period marker lookup failed, falling back to audit log")
		} else if marked {
			return true, nil
		}
	}

	sent, err := s.deps.Logs.HasSuccessfulSend(ctx, module, periodKey)
	if err != nil {
		return false, fmt.Errorf("failed to check audit log: %w", err)
	}
	if !sent {
		sent, err = s.deps.Runs.HasSuccessfulRun(ctx, module, periodKey)
		if err != nil {
			return false, fmt.Errorf("failed to check run records: %w", err)
		}
	}
	if sent {
		s.markPeriod(ctx, module, periodKey, log)
	}
	return sent, nil
}

func (s *ReminderServiceImpl) markPeriod(ctx context.Context, module reminder.ModuleKey, periodKey string, log *logrus.Entry) {
	if s.deps.Markers == nil {
		return
	}
	if err := s.deps.Markers.Mark(ctx, module, periodKey); err != nil {
		log.WithError(err).Warn("Failed to set period marker")
	}
}

func (s *ReminderServiceImpl) deliver(ctx context.Context, msg *mailer.Message, testMode bool) (string, error) {
	if testMode && !s.opts.LiveTestDelivery {
		return mailer.SimulatedProviderID, nil
	}
	return s.deps.Mailer.Send(ctx, msg)
}

// afterRun publishes the completion event, raises alerts and marks the period.
func (s *ReminderServiceImpl) afterRun(module reminder.Module, req RunRequest, result *RunResult, log *logrus.Entry) {
	ctx := context.Background()

	if result.Status == reminder.RunStatusSuccess && !req.TestMode {
		s.markPeriod(ctx, module.Key, result.PeriodKey, log)
	}

	if s.deps.Events != nil {
		event := reminder.RunCompletedEvent{
			RunID:        result.RunID,
			Module:       module.Key,
			PeriodKey:    result.PeriodKey,
			Source:       string(req.Source),
			IsTest:       req.TestMode,
			Status:       result.Status,
			EmailsSent:   result.EmailsSent,
			EmailsFailed: result.EmailsFailed,
			Message:      result.Message,
			FinishedAt:   s.opts.Clock(),
		}
		if err := s.deps.Events.PublishRunCompleted(ctx, event); err != nil {
			log.WithError(err).Warn("Failed to publish run event")
		}
	}

	if s.deps.Alerts != nil && result.Status == reminder.RunStatusFailed {
		s.deps.Alerts.RunFailed(module.Title, result)
	}
}

// auditEntries builds the rows of one send attempt according to the module's granularity.
func auditEntries(module reminder.Module, run *reminder.Run, d DeliveryResult, msg RenderedMessage) []*reminder.LogEntry {
	base := reminder.LogEntry{
		RunID:      run.ID,
		Module:     module.Key,
		PeriodKey:  run.PeriodKey,
		IsTest:     run.IsTest,
		Subject:    msg.Subject,
		Body:       msg.HTML,
		Status:     d.Status,
		ProviderID: d.ProviderID,
		Error:      d.Error,
	}

	if module.Audit != reminder.AuditPerRecipient {
		e := base
		e.ID = uuid.New()
		e.Recipients = append([]string(nil), d.Recipients...)
		return []*reminder.LogEntry{&e}
	}

	entries := make([]*reminder.LogEntry, 0, len(d.Recipients))
	for _, rcpt := range d.Recipients {
		e := base
		e.ID = uuid.New()
		e.Recipients = []string{rcpt}
		entries = append(entries, &e)
	}
	return entries
}

func skippedResult(module reminder.ModuleKey, periodKey, message string) *RunResult {
	return &RunResult{
		Module:    module,
		PeriodKey: periodKey,
		Status:    reminder.RunStatusSkipped,
		Outcome:   OutcomeSkipped,
		Success:   true,
		Message:   message,
	}
}

func errorResult(module reminder.ModuleKey, periodKey string, err error) *RunResult {
	return &RunResult{
		Module:    module,
		PeriodKey: periodKey,
		Status:    reminder.RunStatusFailed,
		Outcome:   OutcomeError,
		Message:   err.Error(),
	}
}

// addressOf strips a display name from a sender like "Compliance <noreply@example.com>".
func addressOf(from string) string {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return from
	}
	return addr.Address
}
