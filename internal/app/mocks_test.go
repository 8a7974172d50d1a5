package app

import (
	"context"
	"sync"

	"compliance_reminders/internal/domain/directory"
	"compliance_reminders/internal/domain/mailer"
	"compliance_reminders/internal/domain/reminder"

	"github.com/google/uuid"
)

type MockCandidateSource struct {
	ListCandidatesFunc func(ctx context.Context) ([]*reminder.CandidateItem, error)
}

func (m *MockCandidateSource) ListCandidates(ctx context.Context) ([]*reminder.CandidateItem, error) {
	if m.ListCandidatesFunc != nil {
		return m.ListCandidatesFunc(ctx)
	}
	return nil, nil
}

type MockTemplateRepository struct {
	ListActiveFunc        func(ctx context.Context, module reminder.ModuleKey) ([]*reminder.Template, error)
	GetModuleSettingsFunc func(ctx context.Context, module reminder.ModuleKey) ([]byte, error)
}

func (m *MockTemplateRepository) ListActive(ctx context.Context, module reminder.ModuleKey) ([]*reminder.Template, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx, module)
	}
	return nil, nil
}

func (m *MockTemplateRepository) GetModuleSettings(ctx context.Context, module reminder.ModuleKey) ([]byte, error) {
	if m.GetModuleSettingsFunc != nil {
		return m.GetModuleSettingsFunc(ctx, module)
	}
	return nil, nil
}

// MemoryReminderStore keeps runs and audit rows in memory and answers the
// idempotency gate from them.
type MemoryReminderStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*reminder.Run
	logs []*reminder.LogEntry

	HasSuccessfulSendErr error
	AppendLogsErr        error
}

func NewMemoryReminderStore() *MemoryReminderStore {
	return &MemoryReminderStore{runs: make(map[uuid.UUID]*reminder.Run)}
}

func (m *MemoryReminderStore) CreateRun(ctx context.Context, run *reminder.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *MemoryReminderStore) FinishRun(ctx context.Context, run *reminder.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *MemoryReminderStore) GetRunByID(ctx context.Context, id uuid.UUID) (*reminder.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[id], nil
}

func (m *MemoryReminderStore) HasSuccessfulRun(ctx context.Context, module reminder.ModuleKey, periodKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.Module == module && r.PeriodKey == periodKey && !r.IsTest && r.Status == reminder.RunStatusSuccess {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryReminderStore) HasSuccessfulSend(ctx context.Context, module reminder.ModuleKey, periodKey string) (bool, error) {
	if m.HasSuccessfulSendErr != nil {
		return false, m.HasSuccessfulSendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.logs {
		if l.Module == module && l.PeriodKey == periodKey && !l.IsTest && l.Status == reminder.DeliverySent {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryReminderStore) AppendLogs(ctx context.Context, entries []*reminder.LogEntry) error {
	if m.AppendLogsErr != nil {
		return m.AppendLogsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entries...)
	return nil
}

func (m *MemoryReminderStore) ListLogsByRun(ctx context.Context, runID uuid.UUID) ([]*reminder.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*reminder.LogEntry
	for _, l := range m.logs {
		if l.RunID == runID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MemoryReminderStore) Logs() []*reminder.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*reminder.LogEntry(nil), m.logs...)
}

func (m *MemoryReminderStore) RunCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

type MockDirectory struct {
	ListAllFunc    func(ctx context.Context) ([]*directory.Person, error)
	GetByTokenFunc func(ctx context.Context, token string) (*directory.Principal, error)
}

func (m *MockDirectory) ListAll(ctx context.Context) ([]*directory.Person, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return nil, nil
}

func (m *MockDirectory) GetByToken(ctx context.Context, token string) (*directory.Principal, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	return nil, directory.ErrPrincipalNotFound
}

type MockMailer struct {
	mu       sync.Mutex
	SendFunc func(ctx context.Context, msg *mailer.Message) (string, error)
	Sent     []*mailer.Message
}

func (m *MockMailer) Name() string { return "mock" }

func (m *MockMailer) Send(ctx context.Context, msg *mailer.Message) (string, error) {
	m.mu.Lock()
	m.Sent = append(m.Sent, msg)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return "msg-1", nil
}

type MockMarkers struct {
	IsMarkedFunc func(ctx context.Context, module reminder.ModuleKey, periodKey string) (bool, error)
	Marked       []string
}

func (m *MockMarkers) IsMarked(ctx context.Context, module reminder.ModuleKey, periodKey string) (bool, error) {
	if m.IsMarkedFunc != nil {
		return m.IsMarkedFunc(ctx, module, periodKey)
	}
	for _, k := range m.Marked {
		if k == string(module)+":"+periodKey {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockMarkers) Mark(ctx context.Context, module reminder.ModuleKey, periodKey string) error {
	m.Marked = append(m.Marked, string(module)+":"+periodKey)
	return nil
}

type MockPublisher struct {
	Events []reminder.RunCompletedEvent
}

func (m *MockPublisher) PublishRunCompleted(ctx context.Context, event reminder.RunCompletedEvent) error {
	m.Events = append(m.Events, event)
	return nil
}

type MockAlerter struct {
	Alerts []*RunResult
}

func (m *MockAlerter) RunFailed(title string, result *RunResult) {
	m.Alerts = append(m.Alerts, result)
}

type MockTelegramClient struct {
	SendMessageFunc func(chatID int64, text string) error
}

func (m *MockTelegramClient) SendMessage(chatID int64, text string) error {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(chatID, text)
	}
	return nil
}
