package domain

import "time"

// RequestKind tags which workflow an approval request belongs to.
type RequestKind string

const (
	RequestKindFiring     RequestKind = "firing"
	RequestKindPunishment RequestKind = "punishment"
)

// RequestStatus is pending until a single resolution.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// Decision is the action taken on an approval prompt.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Status maps the decision to the terminal status it produces.
func (d Decision) Status() (RequestStatus, bool) {
	switch d {
	case DecisionApprove:
		return RequestStatusApproved, true
	case DecisionReject:
		return RequestStatusRejected, true
	}
	return "", false
}

// ApprovalRequest is a persisted, resolve-once approval. Firing requests carry the
// strike snapshot; punishment requests carry the report and decision.
type ApprovalRequest struct {
	ID          string
	Kind        RequestKind
	TargetID    string
	RequestedBy string
	Reason      string
	ReportID    *string
	Strikes     []Note
	Punishment  *Punishment
	Status      RequestStatus
	ReviewerID  *string
	ReviewedAt  *time.Time
	MessageRef  *string
	CreatedAt   time.Time
}
