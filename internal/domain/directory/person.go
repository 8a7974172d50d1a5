package directory

import "database/sql"

// Person is a responsible party from the profiles directory.
type Person struct {
	ID       string
	Email    sql.NullString // profiles without a mailbox cannot receive reminders
	FullName string
}

// Principal is an authenticated caller and the roles granted to it.
type Principal struct {
	UserID string
	Roles  []string
}

// HasAnyRole reports whether the principal holds one of the given roles.
func (p *Principal) HasAnyRole(roles ...string) bool {
	for _, have := range p.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
