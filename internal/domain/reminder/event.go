package reminder

import (
	"time"

	"github.com/google/uuid"
)

// RunCompletedEvent is published after every run that reached a terminal state.
type RunCompletedEvent struct {
	RunID        uuid.UUID `json:"run_id"`
	Module       ModuleKey `json:"module"`
	PeriodKey    string    `json:"period_key"`
	Source       string    `json:"trigger_source"`
	IsTest       bool      `json:"is_test"`
	Status       RunStatus `json:"status"`
	EmailsSent   int       `json:"emails_sent"`
	EmailsFailed int       `json:"emails_failed"`
	Message      string    `json:"message,omitempty"`
	FinishedAt   time.Time `json:"finished_at"`
}
