package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"compliance_reminders/internal/app"
	"compliance_reminders/internal/domain/reminder"
	"compliance_reminders/internal/infra/logger"

	"github.com/google/uuid"
)

type MockAuthorizer struct {
	AuthorizeFunc func(ctx context.Context, creds app.Credentials) (*app.Caller, error)
}

func (m *MockAuthorizer) Authorize(ctx context.Context, creds app.Credentials) (*app.Caller, error) {
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx, creds)
	}
	return nil, app.ErrUnauthorized
}

type MockReminderService struct {
	RunFunc func(ctx context.Context, req app.RunRequest) (*app.RunResult, error)
	LastReq app.RunRequest
}

func (m *MockReminderService) Run(ctx context.Context, req app.RunRequest) (*app.RunResult, error) {
	m.LastReq = req
	if m.RunFunc != nil {
		return m.RunFunc(ctx, req)
	}
	return &app.RunResult{Module: req.Module, Status: reminder.RunStatusSkipped, Outcome: app.OutcomeSkipped, Success: true}, nil
}

func (m *MockReminderService) Module(key reminder.ModuleKey) (reminder.Module, bool) {
	return reminder.LookupModule(key)
}

func secretAuthorizer() *MockAuthorizer {
	return &MockAuthorizer{AuthorizeFunc: func(ctx context.Context, creds app.Credentials) (*app.Caller, error) {
		switch {
		case creds.CronSecret == "s3cret":
			return &app.Caller{Source: reminder.TriggerCron}, nil
		case creds.BearerToken == "admin-token":
			return &app.Caller{Source: reminder.TriggerManual, UserID: "u-admin"}, nil
		case creds.BearerToken == "broken":
			return nil, errors.New("db down")
		}
		return nil, app.ErrUnauthorized
	}}
}

func TestRunReminder(t *testing.T) {
	runID := uuid.New()

	tests := []struct {
		name               string
		path               string
		headers            map[string]string
		body               string
		runFunc            func(ctx context.Context, req app.RunRequest) (*app.RunResult, error)
		expectedStatusCode int
		expectedBodyPart   string
	}{
		{
			name:               "missing credentials",
			path:               "/api/reminders/trainings/run",
			expectedStatusCode: http.StatusUnauthorized,
			expectedBodyPart:   `"success":false`,
		},
		{
			name:               "authorization lookup fails",
			path:               "/api/reminders/trainings/run",
			headers:            map[string]string{"Authorization": "Bearer broken"},
			expectedStatusCode: http.StatusInternalServerError,
		},
		{
			name:               "unknown module",
			path:               "/api/reminders/payroll/run",
			headers:            map[string]string{HeaderCronSecret: "s3cret"},
			expectedStatusCode: http.StatusNotFound,
		},
		{
			name:               "malformed body",
			path:               "/api/reminders/trainings/run",
			headers:            map[string]string{HeaderCronSecret: "s3cret"},
			body:               `{"test_mode": tru`,
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:    "successful send",
			path:    "/api/reminders/deadlines/run",
			headers: map[string]string{"Authorization": "Bearer admin-token"},
			runFunc: func(ctx context.Context, req app.RunRequest) (*app.RunResult, error) {
				return &app.RunResult{
					RunID: runID, Module: req.Module, PeriodKey: "2024-12-30",
					Status: reminder.RunStatusSuccess, Outcome: app.OutcomeSent, Success: true, EmailsSent: 3,
					Results: []app.DeliveryResult{{Recipients: []string{"a@example.com"}, Mode: reminder.DeliveryBCC, Status: reminder.DeliverySent, ProviderID: "re_1"}},
				}, nil
			},
			expectedStatusCode: http.StatusOK,
			expectedBodyPart:   `"emailsSent":3`,
		},
		{
			name:    "delivery failure is reported with 200",
			path:    "/api/reminders/trainings/run",
			headers: map[string]string{HeaderCronSecret: "s3cret"},
			runFunc: func(ctx context.Context, req app.RunRequest) (*app.RunResult, error) {
				return &app.RunResult{Status: reminder.RunStatusFailed, Outcome: app.OutcomeDeliveryFailed, EmailsFailed: 2, Message: "Delivery failed: boom"}, nil
			},
			expectedStatusCode: http.StatusOK,
			expectedBodyPart:   `"emailsFailed":2`,
		},
		{
			name:    "data error maps to 500",
			path:    "/api/reminders/trainings/run",
			headers: map[string]string{HeaderCronSecret: "s3cret"},
			runFunc: func(ctx context.Context, req app.RunRequest) (*app.RunResult, error) {
				return &app.RunResult{Status: reminder.RunStatusFailed, Outcome: app.OutcomeError, Message: "failed to load candidates"}, nil
			},
			expectedStatusCode: http.StatusInternalServerError,
			expectedBodyPart:   "failed to load candidates",
		},
		{
			name:    "no recipients info",
			path:    "/api/reminders/examinations/run",
			headers: map[string]string{HeaderCronSecret: "s3cret"},
			runFunc: func(ctx context.Context, req app.RunRequest) (*app.RunResult, error) {
				return &app.RunResult{Status: reminder.RunStatusSkipped, Outcome: app.OutcomeSkipped, Success: true, Info: app.MsgNoRecipients}, nil
			},
			expectedStatusCode: http.StatusOK,
			expectedBodyPart:   `"info":"No recipients configured"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockReminderService{RunFunc: tt.runFunc}
			router := NewRouter(logger.Discard(), secretAuthorizer(), service, nil, nil)

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatusCode {
				t.Errorf("Expected status code %d, got %d (body %s)", tt.expectedStatusCode, w.Code, w.Body.String())
			}
			if tt.expectedBodyPart != "" && !strings.Contains(w.Body.String(), tt.expectedBodyPart) {
				t.Errorf("Expected body to contain %q, got %s", tt.expectedBodyPart, w.Body.String())
			}
		})
	}
}

func TestRunReminder_PassesTriggerDetails(t *testing.T) {
	service := &MockReminderService{}
	router := NewRouter(logger.Discard(), secretAuthorizer(), service, nil, nil)

	body, _ := json.Marshal(map[string]any{"test_mode": true})
	req := httptest.NewRequest(http.MethodPost, "/api/reminders/trainings/run", bytes.NewReader(body))
	req.Header.Set("Authorization", "bearer admin-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	got := service.LastReq
	if got.Module != reminder.ModuleTrainings || got.Source != reminder.TriggerManual || !got.TestMode || got.TriggeredBy != "u-admin" {
		t.Errorf("unexpected run request %+v", got)
	}

	var resp runResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Success || resp.Status != string(reminder.RunStatusSkipped) || resp.RunID != "" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestRunReminder_UnknownModuleFromService(t *testing.T) {
	service := &MockReminderService{RunFunc: func(ctx context.Context, req app.RunRequest) (*app.RunResult, error) {
		return nil, app.ErrUnknownModule
	}}
	router := NewRouter(logger.Discard(), secretAuthorizer(), service, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/reminders/trainings/run", nil)
	req.Header.Set(HeaderCronSecret, "s3cret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	router := NewRouter(logger.Discard(), secretAuthorizer(), &MockReminderService{}, nil, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}
}
