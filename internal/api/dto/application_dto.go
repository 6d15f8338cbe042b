package dto

import (
	"time"

	"github.com/spec-kit/staff-service/internal/domain"
)

// ApplicationTypeRequest creates or replaces an application form.
type ApplicationTypeRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Kind        domain.ApplicationKind `json:"kind"`
	Questions   []string               `json:"questions"`
	Active      *bool                  `json:"active,omitempty"`
}

// ApplicationTypeResponse describes a form.
type ApplicationTypeResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Kind        domain.ApplicationKind `json:"kind"`
	Questions   []string               `json:"questions"`
	Active      bool                   `json:"active"`
	CreatedAt   time.Time              `json:"created_at"`
}

// CreateApplicationRequest submits answers for a form.
type CreateApplicationRequest struct {
	TypeID  string            `json:"type_id"`
	Answers map[string]string `json:"answers"`
}

// ReviewApplicationRequest approves or rejects an application.
type ReviewApplicationRequest struct {
	Status domain.ApplicationStatus `json:"status"`
	TeamID *string                  `json:"team_id,omitempty"`
}

// ApplicationResponse describes a submission.
type ApplicationResponse struct {
	ID             string                   `json:"id"`
	ApplicantID    string                   `json:"applicant_id"`
	ApplicantName  string                   `json:"applicant_name"`
	TypeID         string                   `json:"type_id"`
	TypeName       string                   `json:"type_name"`
	TypeKind       domain.ApplicationKind   `json:"type_kind"`
	Status         domain.ApplicationStatus `json:"status"`
	Answers        map[string]string        `json:"answers"`
	SubmittedAt    time.Time                `json:"submitted_at"`
	ReviewedBy     *string                  `json:"reviewed_by"`
	ReviewedAt     *time.Time               `json:"reviewed_at"`
	AssignedTeamID *string                  `json:"assigned_team_id"`
}
