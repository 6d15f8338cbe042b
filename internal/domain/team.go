package domain

import "time"

// Team is a staff team led by a head admin.
type Team struct {
	ID          string
	Name        string
	Description string
	HeadAdminID *string
	Members     []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasMember reports whether accountID is on the roster.
func (t *Team) HasMember(accountID string) bool {
	for _, m := range t.Members {
		if m == accountID {
			return true
		}
	}
	return false
}

// IsHeadAdmin reports whether accountID leads the team.
func (t *Team) IsHeadAdmin(accountID string) bool {
	return t.HeadAdminID != nil && *t.HeadAdminID == accountID
}
