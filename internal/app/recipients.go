package app

import (
	"strings"

	"compliance_reminders/internal/domain/directory"
	"compliance_reminders/internal/domain/reminder"
)

// RecipientSource tells which precedence stage produced the recipients.
type RecipientSource string

const (
	RecipientsFromConfig      RecipientSource = "module_config"
	RecipientsFromResponsible RecipientSource = "responsible_parties"
	RecipientsFromTemplate    RecipientSource = "template_targets"
	RecipientsNone            RecipientSource = "none"
)

// RecipientSet is the resolved send-to list of one run.
type RecipientSet struct {
	Emails []string
	Source RecipientSource
	Mode   reminder.DeliveryMode
}

// ResolveRecipients applies the precedence chain: module recipient config
// (exclusive once configured), then the responsible parties of the due items,
// then the default template's static targets.
func ResolveRecipients(cfg reminder.RecipientConfig, due []reminder.DueItem, defaultTmpl *reminder.Template, people map[string]*directory.Person) RecipientSet {
	mode := cfg.Mode
	if mode == "" {
		mode = reminder.DeliveryBCC
	}

	if len(cfg.UserIDs) > 0 {
		return RecipientSet{Emails: emailsFor(cfg.UserIDs, people), Source: RecipientsFromConfig, Mode: mode}
	}

	var responsible []string
	for _, d := range due {
		responsible = append(responsible, d.ResponsibleIDs...)
	}
	if emails := emailsFor(responsible, people); len(emails) > 0 {
		return RecipientSet{Emails: emails, Source: RecipientsFromResponsible, Mode: mode}
	}

	if defaultTmpl != nil {
		if emails := emailsFor(defaultTmpl.TargetUserIDs, people); len(emails) > 0 {
			return RecipientSet{Emails: emails, Source: RecipientsFromTemplate, Mode: mode}
		}
	}
	return RecipientSet{Source: RecipientsNone, Mode: mode}
}

// emailsFor maps ids to addresses, dropping unknown ids and people without a
// mailbox. Duplicates are removed case-insensitively, keeping first-seen order.
func emailsFor(ids []string, people map[string]*directory.Person) []string {
	seen := make(map[string]struct{}, len(ids))
	emails := make([]string, 0, len(ids))
	for _, id := range ids {
		p, ok := people[id]
		if !ok || !p.Email.Valid {
			continue
		}
		email := strings.TrimSpace(p.Email.String)
		if email == "" {
			continue
		}
		key := strings.ToLower(email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		emails = append(emails, email)
	}
	return emails
}

func indexPeople(people []*directory.Person) map[string]*directory.Person {
	idx := make(map[string]*directory.Person, len(people))
	for _, p := range people {
		idx[p.ID] = p
	}
	return idx
}
