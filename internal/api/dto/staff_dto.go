package dto

import "github.com/spec-kit/staff-service/internal/domain"

// StrikeRequest payload.
type StrikeRequest struct {
	Reason string `json:"reason"`
}

// NoteRequest payload.
type NoteRequest struct {
	Text string `json:"text"`
}

// UprankRequest payload.
type UprankRequest struct {
	Rank domain.Rank `json:"rank"`
}

// TransferRequest moves a member between teams.
type TransferRequest struct {
	DiscordID string `json:"discord_id"`
	TeamID    string `json:"team_id"`
}

// AddStaffRequest enrolls an account without an application.
type AddStaffRequest struct {
	DiscordID string  `json:"discord_id"`
	Username  string  `json:"username"`
	TeamID    *string `json:"team_id,omitempty"`
}

// RemoveStaffRequest payload.
type RemoveStaffRequest struct {
	Reason string `json:"reason"`
}

// StrikeResponse reports the strike count and any firing request it opened.
type StrikeResponse struct {
	Member          AccountResponse `json:"member"`
	Strikes         int             `json:"strikes"`
	RequiresFiring  bool            `json:"requires_firing"`
	FiringRequestID string          `json:"firing_request_id,omitempty"`
}

// MyTeamResponse is a head admin's team with its members.
type MyTeamResponse struct {
	Team    TeamResponse      `json:"team"`
	Members []AccountResponse `json:"members"`
}

// RosterEntryResponse is one team of the public roster.
type RosterEntryResponse struct {
	TeamID    string                `json:"team_id,omitempty"`
	TeamName  string                `json:"team_name"`
	HeadAdmin *PublicStaffResponse  `json:"head_admin"`
	Members   []PublicStaffResponse `json:"members"`
}
