package app

import (
	"time"

	"compliance_reminders/internal/domain/reminder"
)

const periodKeyLayout = "2006-01-02"

// PeriodKey identifies the notification period now belongs to. Daily modules
// use the calendar date, every other frequency the Monday of the ISO week.
// The key only feeds the idempotency gate; it never selects records.
func PeriodKey(freq reminder.Frequency, now time.Time) string {
	day := startOfDay(now)
	if freq == reminder.FrequencyDaily {
		return day.Format(periodKeyLayout)
	}
	weekday := int(day.Weekday())
	if weekday == 0 { // Sunday counts as day 7
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1)).Format(periodKeyLayout)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
