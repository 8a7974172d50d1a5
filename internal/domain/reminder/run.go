// internal/domain/reminder/run.go
package reminder

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// TriggerSource identifies who started a run.
type TriggerSource string

const (
	TriggerCron   TriggerSource = "cron"
	TriggerManual TriggerSource = "manual"
	TriggerTest   TriggerSource = "test"
)

// RunStatus is the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
	RunStatusSkipped RunStatus = "skipped"
)

// Run is one invocation of the engine for a module.
// Corresponds to the 'reminder_runs' table. Inserted once as running, finished once.
type Run struct {
	ID           uuid.UUID
	Module       ModuleKey
	PeriodKey    string
	Source       TriggerSource
	TriggeredBy  string
	IsTest       bool
	Status       RunStatus
	EmailsSent   int
	EmailsFailed int
	Error        sql.NullString
	StartedAt    time.Time
	FinishedAt   sql.NullTime
}

// DeliveryStatus is the outcome recorded on an audit row.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "success"
	DeliveryFailed DeliveryStatus = "failed"
)

// LogEntry is one append-only audit row for a send attempt.
// Corresponds to the 'reminder_logs' table.
type LogEntry struct {
	ID         uuid.UUID
	RunID      uuid.UUID
	Module     ModuleKey
	PeriodKey  string
	IsTest     bool
	Recipients []string
	Subject    string
	Body       string
	Status     DeliveryStatus
	ProviderID string
	Error      string
	CreatedAt  time.Time
}
