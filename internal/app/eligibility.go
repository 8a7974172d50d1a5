package app

import (
	"math"
	"sort"
	"time"

	"compliance_reminders/internal/domain/reminder"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const oneDay = 24 * time.Hour

// DaysUntil returns the signed number of calendar days from today to target.
// Both sides are reduced to their calendar date first, so the time of day never
// shifts the result; a target on the same day yields 0.
func DaysUntil(target, today time.Time) int {
	t := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(float64(t.Sub(n)) / float64(oneDay)))
}

// ResolveThreshold picks the reminder window of an item:
// item override, then the template default, then the module default.
func ResolveThreshold(item *reminder.CandidateItem, tmpl *reminder.Template, moduleDefault int) int {
	if item != nil && item.RemindDaysBefore.Valid {
		return int(item.RemindDaysBefore.Int32)
	}
	if tmpl != nil && tmpl.DefaultDaysBefore.Valid {
		return int(tmpl.DefaultDaysBefore.Int32)
	}
	return moduleDefault
}

// SelectionPolicy is everything the selector needs besides the records.
type SelectionPolicy struct {
	Mode          reminder.ThresholdMode
	Offsets       []int
	ModuleDefault int
	Templates     []*reminder.Template
	Locale        language.Tag
}

// SelectDue classifies candidates and returns the due ones, most urgent first.
// Items of inactive subjects are dropped whatever their date.
func SelectDue(items []*reminder.CandidateItem, today time.Time, policy SelectionPolicy) []reminder.DueItem {
	defaultTmpl := reminder.DefaultTemplate(policy.Templates)

	due := make([]reminder.DueItem, 0, len(items))
	for _, item := range items {
		if item == nil || !item.SubjectActive {
			continue
		}

		tmpl := defaultTmpl
		if item.TemplateID.Valid {
			if t := reminder.FindTemplate(policy.Templates, item.TemplateID.String); t != nil {
				tmpl = t
			}
		}

		daysUntil := DaysUntil(item.TargetDate, today)
		if !isDue(daysUntil, item, tmpl, policy) {
			continue
		}

		d := reminder.DueItem{CandidateItem: *item, DaysUntil: daysUntil}
		if tmpl != nil {
			d.TemplateID = tmpl.ID
		}
		due = append(due, d)
	}

	sortDue(due, policy.Locale)
	return due
}

func isDue(daysUntil int, item *reminder.CandidateItem, tmpl *reminder.Template, policy SelectionPolicy) bool {
	if daysUntil < 0 {
		return true
	}
	if policy.Mode == reminder.ThresholdOffsetList {
		for _, off := range policy.Offsets {
			if daysUntil == off {
				return true
			}
		}
		return false
	}
	return daysUntil <= ResolveThreshold(item, tmpl, policy.ModuleDefault)
}

func sortDue(due []reminder.DueItem, locale language.Tag) {
	col := collate.New(locale)
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].DaysUntil != due[j].DaysUntil {
			return due[i].DaysUntil < due[j].DaysUntil
		}
		return col.CompareString(due[i].SubjectName, due[j].SubjectName) < 0
	})
}
