package dto

import "time"

// TeamRequest creates or updates a team.
type TeamRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	HeadAdminID *string `json:"head_admin_id"`
}

// TeamResponse describes a team.
type TeamResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	HeadAdminID *string   `json:"head_admin_id"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
}
