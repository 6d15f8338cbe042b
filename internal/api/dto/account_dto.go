package dto

import (
	"time"

	"github.com/spec-kit/staff-service/internal/domain"
)

// AccountResponse is the full view of an account.
type AccountResponse struct {
	DiscordID    string             `json:"discord_id"`
	Username     string             `json:"username"`
	Avatar       string             `json:"avatar,omitempty"`
	Authority    domain.Authority   `json:"authority"`
	StaffStatus  domain.StaffStatus `json:"staff_status"`
	TeamID       *string            `json:"team_id"`
	Rank         *domain.Rank       `json:"rank"`
	Strikes      int                `json:"strikes"`
	Notes        []domain.Note      `json:"notes"`
	Probation    bool               `json:"probation"`
	ProbationEnd *time.Time         `json:"probation_end"`
	CreatedAt    time.Time          `json:"created_at"`
}

// PublicStaffResponse is the roster view of a staff member.
type PublicStaffResponse struct {
	DiscordID string       `json:"discord_id"`
	Username  string       `json:"username"`
	Avatar    string       `json:"avatar,omitempty"`
	Rank      *domain.Rank `json:"rank"`
	Probation bool         `json:"probation"`
}

// LoginURLResponse carries the provider consent URL.
type LoginURLResponse struct {
	URL string `json:"url"`
}

// AuthorityRequest overrides an account's authority.
type AuthorityRequest struct {
	Authority domain.Authority `json:"authority"`
}
