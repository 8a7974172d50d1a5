// internal/infra/database/postgres_reminder_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"compliance_reminders/internal/domain/reminder"

	"github.com/google/uuid"
	"github.com/lib/pq" // For pq.Array
)

var ErrRunNotFound = fmt.Errorf("reminder run not found")

// PostgresReminderRepository stores run records and the audit log.
type PostgresReminderRepository struct {
	db *sql.DB
}

func NewPostgresReminderRepository(db *sql.DB) *PostgresReminderRepository {
	return &PostgresReminderRepository{db: db}
}

// --- Run Methods ---

func (r *PostgresReminderRepository) CreateRun(ctx context.Context, run *reminder.Run) error {
	query := `INSERT INTO reminder_runs (id, module, period_key, trigger_source, triggered_by, is_test, status, started_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, run.ID, run.Module, run.PeriodKey, run.Source, run.TriggeredBy, run.IsTest, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("error creating reminder run: %w", err)
	}
	return nil
}

func (r *PostgresReminderRepository) FinishRun(ctx context.Context, run *reminder.Run) error {
	query := `UPDATE reminder_runs
               SET status = $1, emails_sent = $2, emails_failed = $3, error = $4, finished_at = $5
               WHERE id = $6 AND finished_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, run.Status, run.EmailsSent, run.EmailsFailed, run.Error, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("error finishing reminder run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (r *PostgresReminderRepository) GetRunByID(ctx context.Context, id uuid.UUID) (*reminder.Run, error) {
	query := `SELECT id, module, period_key, trigger_source, triggered_by, is_test, status,
                      emails_sent, emails_failed, error, started_at, finished_at
               FROM reminder_runs WHERE id = $1`
	run := reminder.Run{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Module, &run.PeriodKey, &run.Source, &run.TriggeredBy, &run.IsTest, &run.Status,
		&run.EmailsSent, &run.EmailsFailed, &run.Error, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("error getting reminder run by ID: %w", err)
	}
	return &run, nil
}

func (r *PostgresReminderRepository) HasSuccessfulRun(ctx context.Context, module reminder.ModuleKey, periodKey string) (bool, error) {
	query := `SELECT EXISTS (
                   SELECT 1 FROM reminder_runs
                   WHERE module = $1 AND period_key = $2 AND is_test = FALSE AND status = $3
               )`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, module, periodKey, reminder.RunStatusSuccess).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking reminder runs for period: %w", err)
	}
	return exists, nil
}

// --- Audit Log Methods ---

func (r *PostgresReminderRepository) HasSuccessfulSend(ctx context.Context, module reminder.ModuleKey, periodKey string) (bool, error) {
	query := `SELECT EXISTS (
                   SELECT 1 FROM reminder_logs
                   WHERE module = $1 AND period_key = $2 AND is_test = FALSE AND status = $3
               )`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, module, periodKey, reminder.DeliverySent).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking reminder log for period: %w", err)
	}
	return exists, nil
}

func (r *PostgresReminderRepository) AppendLogs(ctx context.Context, entries []*reminder.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for audit log: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO reminder_logs (id, run_id, module, period_key, is_test, recipients, subject, body, status, provider_id, error)
                                         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
                                         RETURNING created_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare audit log insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		err := stmt.QueryRowContext(ctx, e.ID, e.RunID, e.Module, e.PeriodKey, e.IsTest, pq.Array(e.Recipients),
			e.Subject, e.Body, e.Status, e.ProviderID, e.Error).Scan(&e.CreatedAt)
		if err != nil {
			return fmt.Errorf("error inserting audit log for run %s: %w", e.RunID, err)
		}
	}

	return txn.Commit()
}

func (r *PostgresReminderRepository) ListLogsByRun(ctx context.Context, runID uuid.UUID) ([]*reminder.LogEntry, error) {
	query := `SELECT id, run_id, module, period_key, is_test, recipients, subject, body, status, provider_id, error, created_at
               FROM reminder_logs WHERE run_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("error querying audit logs by run: %w", err)
	}
	defer rows.Close()

	entries := make([]*reminder.LogEntry, 0)
	for rows.Next() {
		e := reminder.LogEntry{}
		if err := rows.Scan(&e.ID, &e.RunID, &e.Module, &e.PeriodKey, &e.IsTest, pq.Array(&e.Recipients),
			&e.Subject, &e.Body, &e.Status, &e.ProviderID, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning audit log row: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}
	return entries, nil
}
