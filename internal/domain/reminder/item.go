package reminder

import (
	"database/sql"
	"time"
)

// CandidateItem is a due-date-bearing record (training, deadline or examination)
// as read from its source table. The engine never writes it back.
type CandidateItem struct {
	ID               string
	TargetDate       time.Time
	SubjectName      string // employee or equipment
	SubjectActive    bool
	TypeName         string
	Facility         string
	TemplateID       sql.NullString
	RemindDaysBefore sql.NullInt32
	ResponsibleIDs   []string
}

// DueItem is a CandidateItem selected for the current run. Never persisted.
type DueItem struct {
	CandidateItem
	DaysUntil  int
	TemplateID string
}

// Overdue reports whether the target date already passed.
func (d DueItem) Overdue() bool {
	return d.DaysUntil < 0
}
