package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"compliance_reminders/internal/app"
	"compliance_reminders/internal/domain/reminder"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RunHistory reads finished runs and their audit rows.
type RunHistory interface {
	GetRunByID(ctx context.Context, id uuid.UUID) (*reminder.Run, error)
	ListLogsByRun(ctx context.Context, runID uuid.UUID) ([]*reminder.LogEntry, error)
}

type logResponse struct {
	Recipients []string  `json:"recipients"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status"`
	ProviderID string    `json:"providerId,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type runDetailResponse struct {
	RunID        string        `json:"runId"`
	Module       string        `json:"module"`
	PeriodKey    string        `json:"periodKey"`
	Trigger      string        `json:"trigger"`
	TriggeredBy  string        `json:"triggeredBy,omitempty"`
	IsTest       bool          `json:"isTest"`
	Status       string        `json:"status"`
	EmailsSent   int           `json:"emailsSent"`
	EmailsFailed int           `json:"emailsFailed"`
	Error        string        `json:"error,omitempty"`
	StartedAt    time.Time     `json:"startedAt"`
	FinishedAt   *time.Time    `json:"finishedAt,omitempty"`
	Logs         []logResponse `json:"logs"`
}

// GetRun handles GET /api/reminders/runs/{runID}. Only admins may read runs.
func GetRun(log *logrus.Entry, auth Authorizer, history RunHistory, notFound error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := auth.Authorize(r.Context(), credentialsFrom(r))
		if err != nil || caller.Source != reminder.TriggerManual {
			if err != nil && !errors.Is(err, app.ErrUnauthorized) {
				log.WithError(err).Error("Authorization failed")
				renderError(w, r, http.StatusInternalServerError, "authorization failed")
				return
			}
			renderError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "runID"))
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "invalid run id")
			return
		}

		run, err := history.GetRunByID(r.Context(), id)
		if err != nil {
			if notFound != nil && errors.Is(err, notFound) {
				renderError(w, r, http.StatusNotFound, "run not found")
				return
			}
			log.WithError(err).WithField("run_id", id).Error("Failed to load run")
			renderError(w, r, http.StatusInternalServerError, "failed to load run")
			return
		}
		if run == nil {
			renderError(w, r, http.StatusNotFound, "run not found")
			return
		}

		logs, err := history.ListLogsByRun(r.Context(), id)
		if err != nil {
			log.WithError(err).WithField("run_id", id).Error("Failed to load audit rows")
			renderError(w, r, http.StatusInternalServerError, "failed to load audit rows")
			return
		}

		render.JSON(w, r, toRunDetail(run, logs))
	}
}

func toRunDetail(run *reminder.Run, logs []*reminder.LogEntry) runDetailResponse {
	resp := runDetailResponse{
		RunID:        run.ID.String(),
		Module:       string(run.Module),
		PeriodKey:    run.PeriodKey,
		Trigger:      string(run.Source),
		TriggeredBy:  run.TriggeredBy,
		IsTest:       run.IsTest,
		Status:       string(run.Status),
		EmailsSent:   run.EmailsSent,
		EmailsFailed: run.EmailsFailed,
		StartedAt:    run.StartedAt,
		Logs:         make([]logResponse, 0, len(logs)),
	}
	if run.Error.Valid {
		resp.Error = run.Error.String
	}
	if run.FinishedAt.Valid {
		finished := run.FinishedAt.Time
		resp.FinishedAt = &finished
	}
	for _, l := range logs {
		resp.Logs = append(resp.Logs, logResponse{
			Recipients: l.Recipients,
			Subject:    l.Subject,
			Status:     string(l.Status),
			ProviderID: l.ProviderID,
			Error:      l.Error,
			CreatedAt:  l.CreatedAt,
		})
	}
	return resp
}
