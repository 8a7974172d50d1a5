package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"compliance_reminders/internal/app"
	"compliance_reminders/internal/domain/reminder"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	HeaderCronSecret = "X-Cron-Secret"
	maxBodyBytes     = 64 << 10
)

// Authorizer resolves trigger credentials to a caller.
type Authorizer interface {
	Authorize(ctx context.Context, creds app.Credentials) (*app.Caller, error)
}

type runRequest struct {
	TriggeredBy string `json:"triggered_by"`
	TestMode    bool   `json:"test_mode"`
}

type deliveryResponse struct {
	Recipients []string `json:"recipients"`
	Mode       string   `json:"mode"`
	Source     string   `json:"source"`
	Status     string   `json:"status"`
	ProviderID string   `json:"providerId,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type runResponse struct {
	Success      bool               `json:"success"`
	EmailsSent   int                `json:"emailsSent"`
	EmailsFailed int                `json:"emailsFailed"`
	Message      string             `json:"message,omitempty"`
	Info         string             `json:"info,omitempty"`
	Results      []deliveryResponse `json:"results,omitempty"`
	RunID        string             `json:"runId,omitempty"`
	PeriodKey    string             `json:"periodKey,omitempty"`
	Status       string             `json:"status"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// RunReminder handles POST /api/reminders/{module}/run.
func RunReminder(log *logrus.Entry, auth Authorizer, service app.ReminderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		module := reminder.ModuleKey(chi.URLParam(r, "module"))
		reqLog := log.WithFields(logrus.Fields{"module": module, "request_id": requestID(r)})

		caller, err := auth.Authorize(r.Context(), credentialsFrom(r))
		if err != nil {
			if errors.Is(err, app.ErrUnauthorized) {
				reqLog.Warn("Unauthorized reminder trigger")
				renderError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			reqLog.WithError(err).Error("Authorization failed")
			renderError(w, r, http.StatusInternalServerError, "authorization failed")
			return
		}

		if _, ok := service.Module(module); !ok {
			renderError(w, r, http.StatusNotFound, "unknown reminder module")
			return
		}

		var body runRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			reqLog.WithError(err).Warn("Malformed run request body")
			renderError(w, r, http.StatusBadRequest, "malformed JSON body")
			return
		}

		triggeredBy := strings.TrimSpace(body.TriggeredBy)
		if triggeredBy == "" {
			triggeredBy = caller.UserID
		}
		if triggeredBy == "" {
			triggeredBy = string(caller.Source)
		}

		result, err := service.Run(r.Context(), app.RunRequest{
			Module:      module,
			Source:      caller.Source,
			TriggeredBy: triggeredBy,
			TestMode:    body.TestMode,
		})
		if err != nil {
			if errors.Is(err, app.ErrUnknownModule) {
				renderError(w, r, http.StatusNotFound, "unknown reminder module")
				return
			}
			reqLog.WithError(err).Error("Reminder run could not start")
			renderError(w, r, http.StatusInternalServerError, err.Error())
			return
		}

		if result.Outcome == app.OutcomeError {
			render.Status(r, http.StatusInternalServerError)
		}
		render.JSON(w, r, toRunResponse(result))
	}
}

// Health handles GET /healthz.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	}
}

func credentialsFrom(r *http.Request) app.Credentials {
	creds := app.Credentials{CronSecret: r.Header.Get(HeaderCronSecret)}
	authz := r.Header.Get("Authorization")
	if len(authz) > len("Bearer ") && strings.EqualFold(authz[:len("Bearer ")], "Bearer ") {
		creds.BearerToken = strings.TrimSpace(authz[len("Bearer "):])
	}
	return creds
}

func toRunResponse(result *app.RunResult) runResponse {
	resp := runResponse{
		Success:      result.Success,
		EmailsSent:   result.EmailsSent,
		EmailsFailed: result.EmailsFailed,
		Message:      result.Message,
		Info:         result.Info,
		PeriodKey:    result.PeriodKey,
		Status:       string(result.Status),
	}
	if result.RunID != uuid.Nil {
		resp.RunID = result.RunID.String()
	}
	for _, d := range result.Results {
		resp.Results = append(resp.Results, deliveryResponse{
			Recipients: d.Recipients,
			Mode:       string(d.Mode),
			Source:     string(d.Source),
			Status:     string(d.Status),
			ProviderID: d.ProviderID,
			Error:      d.Error,
		})
	}
	return resp
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Success: false, Error: msg})
}
