package database

import (
	"context"
	"database/sql"
	"fmt"

	"compliance_reminders/internal/domain/reminder"

	"github.com/lib/pq"
)

// Every query yields: id, target date, subject name, subject active, type name,
// facility, template id, remind days before, responsible user ids.
var candidateQueries = map[reminder.ModuleKey]string{
	reminder.ModuleTrainings: `
        SELECT tr.id::text, tr.due_date, COALESCE(e.full_name, ''), (e.deleted_at IS NULL AND e.is_active),
               COALESCE(tt.name, ''), COALESCE(f.name, ''), tr.template_id::text, tr.remind_days_before,
               ARRAY_REMOVE(ARRAY[e.manager_id::text, tr.responsible_id::text], NULL)
        FROM trainings tr
        JOIN employees e ON e.id = tr.employee_id
        LEFT JOIN training_types tt ON tt.id = tr.training_type_id
        LEFT JOIN facilities f ON f.id = e.facility_id
        WHERE tr.deleted_at IS NULL AND tr.completed_at IS NULL`,

	reminder.ModuleDeadlines: `
        SELECT td.id::text, td.due_date, COALESCE(eq.name, ''), (eq.deleted_at IS NULL AND eq.is_active),
               COALESCE(dt.name, ''), COALESCE(f.name, ''), td.template_id::text, td.remind_days_before,
               ARRAY_REMOVE(ARRAY[eq.responsible_id::text, td.responsible_id::text], NULL)
        FROM technical_deadlines td
        JOIN equipment eq ON eq.id = td.equipment_id
        LEFT JOIN deadline_types dt ON dt.id = td.deadline_type_id
        LEFT JOIN facilities f ON f.id = eq.facility_id
        WHERE td.deleted_at IS NULL AND td.completed_at IS NULL`,

	reminder.ModuleExaminations: `
        SELECT me.id::text, me.due_date, COALESCE(e.full_name, ''), (e.deleted_at IS NULL AND e.is_active),
               COALESCE(xt.name, ''), COALESCE(f.name, ''), NULL::text, NULL::integer,
               ARRAY_REMOVE(ARRAY[e.manager_id::text], NULL)
        FROM medical_examinations me
        JOIN employees e ON e.id = me.employee_id
        LEFT JOIN examination_types xt ON xt.id = me.examination_type_id
        LEFT JOIN facilities f ON f.id = e.facility_id
        WHERE me.deleted_at IS NULL AND me.completed_at IS NULL`,
}

// PostgresCandidateSource reads the open records of one module.
type PostgresCandidateSource struct {
	db     *sql.DB
	module reminder.ModuleKey
	query  string
}

func NewPostgresCandidateSource(db *sql.DB, module reminder.ModuleKey) (*PostgresCandidateSource, error) {
	query, ok := candidateQueries[module]
	if !ok {
		return nil, fmt.Errorf("no candidate query for module %q", module)
	}
	return &PostgresCandidateSource{db: db, module: module, query: query}, nil
}

// NewPostgresCandidateSources builds a source for every known module.
func NewPostgresCandidateSources(db *sql.DB) (map[reminder.ModuleKey]reminder.CandidateSource, error) {
	sources := make(map[reminder.ModuleKey]reminder.CandidateSource, len(candidateQueries))
	for _, m := range reminder.Modules() {
		src, err := NewPostgresCandidateSource(db, m.Key)
		if err != nil {
			return nil, err
		}
		sources[m.Key] = src
	}
	return sources, nil
}

func (s *PostgresCandidateSource) ListCandidates(ctx context.Context) ([]*reminder.CandidateItem, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("error listing %s candidates: %w", s.module, err)
	}
	defer rows.Close()

	items := make([]*reminder.CandidateItem, 0)
	for rows.Next() {
		item := &reminder.CandidateItem{}
		if err := rows.Scan(
			&item.ID,
			&item.TargetDate,
			&item.SubjectName,
			&item.SubjectActive,
			&item.TypeName,
			&item.Facility,
			&item.TemplateID,
			&item.RemindDaysBefore,
			pq.Array(&item.ResponsibleIDs),
		); err != nil {
			return nil, fmt.Errorf("error scanning %s candidate: %w", s.module, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s candidates: %w", s.module, err)
	}
	return items, nil
}
