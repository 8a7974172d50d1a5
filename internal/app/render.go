package app

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"
	"time"

	"compliance_reminders/internal/domain/reminder"
)

// TestSubjectPrefix marks messages produced by test runs.
const TestSubjectPrefix = "[TEST] "

const (
	defaultSubject = "{title}: {totalCount} item(s) need attention"
	defaultBody    = "Reminder report of {reportDate}: {expiringCount} item(s) due soon, {expiredCount} overdue."
	emptyTableHTML = `<p>Nothing to report.</p>`
)

// Counts are the aggregates exposed to templates.
type Counts struct {
	Total    int
	Expiring int
	Expired  int
}

// CountDue splits due items into overdue and upcoming.
func CountDue(due []reminder.DueItem) Counts {
	c := Counts{Total: len(due)}
	for _, d := range due {
		if d.Overdue() {
			c.Expired++
		}
	}
	c.Expiring = c.Total - c.Expired
	return c
}

// SubstitutePlaceholders fills the known placeholders; anything else in braces is left as is.
func SubstitutePlaceholders(text string, c Counts, reportDate string) string {
	return strings.NewReplacer(
		"{totalCount}", strconv.Itoa(c.Total),
		"{expiringCount}", strconv.Itoa(c.Expiring),
		"{expiredCount}", strconv.Itoa(c.Expired),
		"{reportDate}", reportDate,
	).Replace(text)
}

// RenderInput carries the template texts and data of one run.
type RenderInput struct {
	Title      string
	Subject    string
	Body       string
	Due        []reminder.DueItem
	Today      time.Time
	DateLayout string
	TestMode   bool
}

// RenderedMessage is the merged subject and HTML body.
type RenderedMessage struct {
	Subject string
	HTML    string
}

// Render merges placeholders into subject and body and appends the item table.
func Render(in RenderInput) (RenderedMessage, error) {
	layout := in.DateLayout
	if layout == "" {
		layout = periodKeyLayout
	}
	counts := CountDue(in.Due)
	reportDate := in.Today.Format(layout)

	subjectText := in.Subject
	if strings.TrimSpace(subjectText) == "" {
		subjectText = strings.ReplaceAll(defaultSubject, "{title}", in.Title)
	}
	bodyText := in.Body
	if strings.TrimSpace(bodyText) == "" {
		bodyText = defaultBody
	}

	subject := SubstitutePlaceholders(subjectText, counts, reportDate)
	if in.TestMode {
		subject = TestSubjectPrefix + subject
	}

	table, err := RenderTable(in.Due, layout)
	if err != nil {
		return RenderedMessage{}, err
	}

	body := bodyHTML(SubstitutePlaceholders(bodyText, counts, reportDate))
	return RenderedMessage{Subject: subject, HTML: body + "\n" + table}, nil
}

// bodyHTML keeps admin-authored HTML and turns plain text into escaped paragraphs.
func bodyHTML(text string) string {
	if looksLikeHTML(text) {
		return text
	}
	escaped := html.EscapeString(text)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

func looksLikeHTML(body string) bool {
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "<") && strings.Contains(trimmed, ">")
}

type tableRow struct {
	Subject    string
	Type       string
	Facility   string
	TargetDate string
	Badge      string
	Overdue    bool
}

var tableTmpl = template.Must(template.New("table").Parse(`<table style="border-collapse:collapse;width:100%">
<thead><tr><th align="left">Name</th><th align="left">Type</th><th align="left">Facility</th><th align="left">Date</th><th align="left">Status</th></tr></thead>
<tbody>
{{- range .}}
<tr><td>{{.Subject}}</td><td>{{.Type}}</td><td>{{.Facility}}</td><td>{{.TargetDate}}</td><td>{{if .Overdue}}<span style="background:#d32f2f;color:#fff;padding:2px 6px;border-radius:4px">{{else}}<span style="background:#f9a825;color:#fff;padding:2px 6px;border-radius:4px">{{end}}{{.Badge}}</span></td></tr>
{{- end}}
</tbody>
</table>`))

// RenderTable renders one row per due item, or a short notice when there are none.
func RenderTable(due []reminder.DueItem, dateLayout string) (string, error) {
	if len(due) == 0 {
		return emptyTableHTML, nil
	}

	rows := make([]tableRow, 0, len(due))
	for _, d := range due {
		rows = append(rows, tableRow{
			Subject:    d.SubjectName,
			Type:       d.TypeName,
			Facility:   d.Facility,
			TargetDate: d.TargetDate.Format(dateLayout),
			Badge:      badgeText(d.DaysUntil),
			Overdue:    d.Overdue(),
		})
	}

	var buf bytes.Buffer
	if err := tableTmpl.Execute(&buf, rows); err != nil {
		return "", fmt.Errorf("failed to render item table: %w", err)
	}
	return buf.String(), nil
}

func badgeText(daysUntil int) string {
	switch {
	case daysUntil < 0:
		return fmt.Sprintf("overdue by %d day(s)", -daysUntil)
	case daysUntil == 0:
		return "due today"
	default:
		return fmt.Sprintf("due in %d day(s)", daysUntil)
	}
}
