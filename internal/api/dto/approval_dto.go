package dto

import (
	"time"

	"github.com/spec-kit/staff-service/internal/domain"
)

// ResolveRequest decides an approval request.
type ResolveRequest struct {
	Decision domain.Decision `json:"decision"`
}

// ApprovalResponse describes an approval request.
type ApprovalResponse struct {
	ID          string               `json:"id"`
	Kind        domain.RequestKind   `json:"kind"`
	TargetID    string               `json:"target_id"`
	RequestedBy string               `json:"requested_by"`
	Reason      string               `json:"reason"`
	ReportID    *string              `json:"report_id,omitempty"`
	Strikes     []domain.Note        `json:"strikes,omitempty"`
	Punishment  *domain.Punishment   `json:"punishment,omitempty"`
	Status      domain.RequestStatus `json:"status"`
	ReviewerID  *string              `json:"reviewer_id"`
	ReviewedAt  *time.Time           `json:"reviewed_at"`
	CreatedAt   time.Time            `json:"created_at"`
}
