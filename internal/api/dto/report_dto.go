package dto

import (
	"time"

	"github.com/spec-kit/staff-service/internal/domain"
)

// CreateReportRequest files a report against a player.
type CreateReportRequest struct {
	ReportedPlayer string  `json:"reported_player"`
	Category       string  `json:"category"`
	Description    string  `json:"description"`
	Evidence       *string `json:"evidence,omitempty"`
}

// PunishmentRequest is the sanction decided on a report.
type PunishmentRequest struct {
	Type          domain.PunishmentType `json:"type"`
	DurationHours int                   `json:"duration_hours"`
	Reason        string                `json:"reason"`
}

// UpdateReportRequest carries admin changes; omitted fields are left unchanged.
type UpdateReportRequest struct {
	Status     *domain.ReportStatus `json:"status,omitempty"`
	AdminNotes *string              `json:"admin_notes,omitempty"`
	Punishment *PunishmentRequest   `json:"punishment,omitempty"`
}

// ReportResponse describes a report.
type ReportResponse struct {
	ID             string              `json:"id"`
	ReporterID     string              `json:"reporter_id"`
	ReporterName   string              `json:"reporter_name"`
	ReportedPlayer string              `json:"reported_player"`
	Category       string              `json:"category"`
	Description    string              `json:"description"`
	Evidence       *string             `json:"evidence"`
	Status         domain.ReportStatus `json:"status"`
	Punishment     *domain.Punishment  `json:"punishment"`
	AdminNotes     string              `json:"admin_notes,omitempty"`
	HandledBy      *string             `json:"handled_by"`
	HandledAt      *time.Time          `json:"handled_at"`
	CreatedAt      time.Time           `json:"created_at"`
}
