// internal/domain/reminder/repository.go
package reminder

import (
	"context"

	"github.com/google/uuid"
)

// CandidateSource reads active, non-deleted candidate records of one module.
type CandidateSource interface {
	ListCandidates(ctx context.Context) ([]*CandidateItem, error)
}

// TemplateRepository reads reminder templates.
type TemplateRepository interface {
	// ListActive returns active templates of the module, oldest first.
	ListActive(ctx context.Context, module ModuleKey) ([]*Template, error)
}

// SettingsRepository reads the stored settings blob of a module.
type SettingsRepository interface {
	// GetModuleSettings returns the raw JSON value, or nil when nothing is stored.
	GetModuleSettings(ctx context.Context, module ModuleKey) ([]byte, error)
}

// RunRepository persists ReminderRun lifecycle rows.
type RunRepository interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	GetRunByID(ctx context.Context, id uuid.UUID) (*Run, error)
	// HasSuccessfulRun reports whether a finished non-test run succeeded for the period.
	HasSuccessfulRun(ctx context.Context, module ModuleKey, periodKey string) (bool, error)
}

// LogRepository is the append-only audit log and the idempotency source.
type LogRepository interface {
	// HasSuccessfulSend reports whether a non-test success row exists for the period.
	HasSuccessfulSend(ctx context.Context, module ModuleKey, periodKey string) (bool, error)
	// AppendLogs inserts all rows of one send attempt atomically.
	AppendLogs(ctx context.Context, entries []*LogEntry) error
	ListLogsByRun(ctx context.Context, runID uuid.UUID) ([]*LogEntry, error)
}
