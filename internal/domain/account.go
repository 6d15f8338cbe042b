package domain

import "time"

// StaffStatus is the coarse lifecycle position of an account.
type StaffStatus string

const (
	StaffStatusPlayer StaffStatus = "player"
	StaffStatusMember StaffStatus = "staff_member"
)

// Valid reports whether s is a known staff status.
func (s StaffStatus) Valid() bool {
	return s == StaffStatusPlayer || s == StaffStatusMember
}

// Rank enumerates staff ranks.
type Rank string

const (
	RankTrainee       Rank = "trainee"
	RankModerator     Rank = "moderator"
	RankAdministrator Rank = "administrator"
	RankSeniorAdmin   Rank = "senior_admin"
)

// Ranks lists every rank in ascending order.
var Ranks = []Rank{RankTrainee, RankModerator, RankAdministrator, RankSeniorAdmin}

// Valid reports whether r is a known rank.
func (r Rank) Valid() bool {
	for _, known := range Ranks {
		if r == known {
			return true
		}
	}
	return false
}

// NoteKind tags entries in an account's note log.
type NoteKind string

const (
	NoteKindNote          NoteKind = "note"
	NoteKindStrike        NoteKind = "strike"
	NoteKindStrikeRemoved NoteKind = "strike_removed"
	NoteKindSystem        NoteKind = "system"
)

// Note is an append-only log entry on a staff member.
type Note struct {
	Kind      NoteKind  `json:"kind"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Account is a community member keyed by their Discord id.
type Account struct {
	DiscordID    string
	Username     string
	Avatar       string
	Authority    Authority
	StaffStatus  StaffStatus
	TeamID       *string
	Rank         *Rank
	Strikes      int
	Notes        []Note
	Probation    bool
	ProbationEnd *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsStaff reports whether the account currently holds a staff position.
func (a *Account) IsStaff() bool {
	return a != nil && a.StaffStatus == StaffStatusMember
}

// StrikeNotes returns the strike entries of the note log in order.
func (a *Account) StrikeNotes() []Note {
	var out []Note
	for _, n := range a.Notes {
		if n.Kind == NoteKindStrike {
			out = append(out, n)
		}
	}
	return out
}

// ResetStaffFields returns a to player defaults.
func (a *Account) ResetStaffFields() {
	a.StaffStatus = StaffStatusPlayer
	a.TeamID = nil
	a.Rank = nil
	a.Strikes = 0
	a.Notes = nil
	a.Probation = false
	a.ProbationEnd = nil
}

// Enrollment describes the staff fields written when an account joins staff.
type Enrollment struct {
	AccountID    string
	Username     string
	TeamID       *string
	ProbationEnd time.Time
}
