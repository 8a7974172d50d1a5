package reminder

import "database/sql"

// Template is a named subject/body configuration with a default day offset.
// Corresponds to the 'reminder_templates' table.
type Template struct {
	ID                string
	Module            ModuleKey
	Name              string
	Subject           string
	Body              string
	DefaultDaysBefore sql.NullInt32
	TargetUserIDs     []string
	IsActive          bool
}

// DefaultTemplate returns the first active template, which the engine treats as
// the default for items without an explicit template.
func DefaultTemplate(templates []*Template) *Template {
	for _, t := range templates {
		if t.IsActive {
			return t
		}
	}
	return nil
}

// FindTemplate looks a template up by id.
func FindTemplate(templates []*Template, id string) *Template {
	for _, t := range templates {
		if t.ID == id {
			return t
		}
	}
	return nil
}
