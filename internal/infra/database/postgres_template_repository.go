package database

import (
	"context"
	"database/sql"
	"fmt"

	"compliance_reminders/internal/domain/reminder"

	"github.com/lib/pq"
)

// PostgresTemplateRepository reads reminder templates and module settings.
type PostgresTemplateRepository struct {
	db *sql.DB
}

func NewPostgresTemplateRepository(db *sql.DB) *PostgresTemplateRepository {
	return &PostgresTemplateRepository{db: db}
}

func (r *PostgresTemplateRepository) ListActive(ctx context.Context, module reminder.ModuleKey) ([]*reminder.Template, error) {
	query := `SELECT id::text, module, name, subject, body, default_days_before, target_user_ids, is_active
               FROM reminder_templates
               WHERE module = $1 AND is_active = TRUE
               ORDER BY created_at, id` // the first row is the module default
	rows, err := r.db.QueryContext(ctx, query, module)
	if err != nil {
		return nil, fmt.Errorf("error listing active templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*reminder.Template, 0)
	for rows.Next() {
		t := &reminder.Template{}
		if err := rows.Scan(&t.ID, &t.Module, &t.Name, &t.Subject, &t.Body, &t.DefaultDaysBefore,
			pq.Array(&t.TargetUserIDs), &t.IsActive); err != nil {
			return nil, fmt.Errorf("error scanning template: %w", err)
		}
		templates = append(templates, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}
	return templates, nil
}

// GetModuleSettings returns the JSON stored under "reminders.<module>", or nil.
func (r *PostgresTemplateRepository) GetModuleSettings(ctx context.Context, module reminder.ModuleKey) ([]byte, error) {
	query := `SELECT value FROM app_settings WHERE key = $1`
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, settingsKey(module)).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading settings for %s: %w", module, err)
	}
	return raw, nil
}

func settingsKey(module reminder.ModuleKey) string {
	return "reminders." + string(module)
}
