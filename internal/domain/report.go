package domain

import "time"

// ReportStatus tracks handling of a player report.
type ReportStatus string

const (
	ReportStatusPending       ReportStatus = "pending"
	ReportStatusInvestigating ReportStatus = "investigating"
	ReportStatusResolved      ReportStatus = "resolved"
	ReportStatusDismissed     ReportStatus = "dismissed"
)

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusPending, ReportStatusInvestigating, ReportStatusResolved, ReportStatusDismissed:
		return true
	}
	return false
}

// ReportCategories are the rule violations a player can be reported for.
var ReportCategories = []string{
	"rdm",
	"vdm",
	"failrp",
	"metagaming",
	"powergaming",
	"nlr",
	"combat_logging",
	"exploiting",
	"toxicity",
	"other",
}

// ValidReportCategory reports whether c is a known category.
func ValidReportCategory(c string) bool {
	for _, known := range ReportCategories {
		if c == known {
			return true
		}
	}
	return false
}

// PunishmentType is the sanction decided for a report.
type PunishmentType string

const (
	PunishmentNone PunishmentType = "none"
	PunishmentWarn PunishmentType = "warn"
	PunishmentBan  PunishmentType = "ban"
)

// Valid reports whether p is a known punishment type.
func (p PunishmentType) Valid() bool {
	return p == PunishmentNone || p == PunishmentWarn || p == PunishmentBan
}

// Punishment is the decision attached to a report, gated by approval.
type Punishment struct {
	Type          PunishmentType `json:"type"`
	DurationHours int            `json:"duration_hours,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Status        RequestStatus  `json:"status,omitempty"`
	RequestID     string         `json:"request_id,omitempty"`
}

// Report is a player-submitted rule violation report.
type Report struct {
	ID             string
	ReporterID     string
	ReporterName   string
	ReportedPlayer string
	Category       string
	Description    string
	Evidence       *string
	Status         ReportStatus
	Punishment     *Punishment
	HandledBy      *string
	HandledAt      *time.Time
	AdminNotes     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
