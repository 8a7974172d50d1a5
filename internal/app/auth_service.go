package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"compliance_reminders/internal/domain/directory"
	"compliance_reminders/internal/domain/reminder"
)

// ErrUnauthorized rejects a trigger before any other run state executes.
var ErrUnauthorized = errors.New("trigger is not authorized")

// Credentials are the authorization inputs presented by a trigger request.
type Credentials struct {
	CronSecret  string
	BearerToken string
}

// Caller is an authorized trigger.
type Caller struct {
	Source reminder.TriggerSource
	UserID string
}

// TriggerAuthorizer accepts the scheduler's shared secret or a bearer token of an admin.
type TriggerAuthorizer struct {
	principals directory.PrincipalRepository
	cronSecret string
	adminRoles []string
}

func NewTriggerAuthorizer(pr directory.PrincipalRepository, cronSecret string, adminRoles []string) *TriggerAuthorizer {
	roles := make([]string, 0, len(adminRoles))
	for _, r := range adminRoles {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return &TriggerAuthorizer{
		principals: pr,
		cronSecret: cronSecret,
		adminRoles: roles,
	}
}

// Authorize resolves credentials to a caller. Lookup failures other than an
// unknown token are returned wrapped, not as ErrUnauthorized.
func (a *TriggerAuthorizer) Authorize(ctx context.Context, creds Credentials) (*Caller, error) {
	if a.cronSecret != "" && creds.CronSecret != "" &&
		subtle.ConstantTimeCompare([]byte(a.cronSecret), []byte(creds.CronSecret)) == 1 {
		return &Caller{Source: reminder.TriggerCron}, nil
	}

	token := strings.TrimSpace(creds.BearerToken)
	if token == "" || a.principals == nil || len(a.adminRoles) == 0 {
		return nil, ErrUnauthorized
	}

	principal, err := a.principals.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, directory.ErrPrincipalNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}
	if !principal.HasAnyRole(a.adminRoles...) {
		return nil, ErrUnauthorized
	}
	return &Caller{Source: reminder.TriggerManual, UserID: principal.UserID}, nil
}
