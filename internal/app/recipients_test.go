package app

import (
	"database/sql"
	"reflect"
	"testing"

	"compliance_reminders/internal/domain/directory"
	"compliance_reminders/internal/domain/reminder"
)

func people(entries map[string]string) map[string]*directory.Person {
	idx := make(map[string]*directory.Person, len(entries))
	for id, email := range entries {
		p := &directory.Person{ID: id}
		if email != "" {
			p.Email = sql.NullString{String: email, Valid: true}
		}
		idx[id] = p
	}
	return idx
}

func dueWith(responsible ...string) []reminder.DueItem {
	return []reminder.DueItem{{CandidateItem: reminder.CandidateItem{ID: "i1", ResponsibleIDs: responsible}}}
}

func TestResolveRecipients(t *testing.T) {
	dir := people(map[string]string{
		"u1": "one@example.com", "u2": "two@example.com", "u3": "three@example.com",
		"u4": "four@example.com", "u5": "five@example.com", "u6": "six@example.com",
		"u7": "ONE@example.com", "nomail": "",
	})
	tmpl := &reminder.Template{ID: "t", IsActive: true, TargetUserIDs: []string{"u6"}}

	tests := []struct {
		name       string
		cfg        reminder.RecipientConfig
		due        []reminder.DueItem
		tmpl       *reminder.Template
		wantEmails []string
		wantSource RecipientSource
		wantMode   reminder.DeliveryMode
	}{
		{
			name:       "module config wins over responsible parties",
			cfg:        reminder.RecipientConfig{UserIDs: []string{"u1", "u2"}, Mode: reminder.DeliveryTo},
			due:        dueWith("u1", "u2", "u3", "u4", "u5"),
			tmpl:       tmpl,
			wantEmails: []string{"one@example.com", "two@example.com"},
			wantSource: RecipientsFromConfig,
			wantMode:   reminder.DeliveryTo,
		},
		{
			name:       "configured ids without mailbox do not fall through",
			cfg:        reminder.RecipientConfig{UserIDs: []string{"nomail", "ghost"}},
			due:        dueWith("u1"),
			tmpl:       tmpl,
			wantEmails: []string{},
			wantSource: RecipientsFromConfig,
			wantMode:   reminder.DeliveryBCC,
		},
		{
			name:       "responsible parties deduplicated case-insensitively",
			due:        dueWith("u1", "u3", "u7", "u1", "nomail"),
			tmpl:       tmpl,
			wantEmails: []string{"one@example.com", "three@example.com"},
			wantSource: RecipientsFromResponsible,
			wantMode:   reminder.DeliveryBCC,
		},
		{
			name:       "template targets as last resort",
			due:        dueWith("nomail"),
			tmpl:       tmpl,
			wantEmails: []string{"six@example.com"},
			wantSource: RecipientsFromTemplate,
			wantMode:   reminder.DeliveryBCC,
		},
		{
			name:       "nothing resolves",
			due:        dueWith(),
			wantSource: RecipientsNone,
			wantMode:   reminder.DeliveryBCC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRecipients(tt.cfg, tt.due, tt.tmpl, dir)
			if len(got.Emails) != len(tt.wantEmails) || (len(tt.wantEmails) > 0 && !reflect.DeepEqual(got.Emails, tt.wantEmails)) {
				t.Errorf("emails = %v, want %v", got.Emails, tt.wantEmails)
			}
			if got.Source != tt.wantSource {
				t.Errorf("source = %s, want %s", got.Source, tt.wantSource)
			}
			if got.Mode != tt.wantMode {
				t.Errorf("mode = %s, want %s", got.Mode, tt.wantMode)
			}
		})
	}
}
