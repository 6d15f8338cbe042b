package domain

import "time"

// ApplicationKind decides what an approved application grants.
type ApplicationKind string

const (
	ApplicationKindStaff     ApplicationKind = "staff"
	ApplicationKindWhitelist ApplicationKind = "whitelist"
)

// ApplicationType is a form applicants fill in. Types are soft-deleted via Active.
type ApplicationType struct {
	ID          string
	Name        string
	Description string
	Kind        ApplicationKind
	Questions   []string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApplicationStatus is pending until reviewed; approved and rejected are terminal.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Terminal reports whether the status can no longer change.
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusRejected
}

// Application is a submitted form. Type name and kind are snapshotted at submission.
type Application struct {
	ID             string
	ApplicantID    string
	ApplicantName  string
	TypeID         string
	TypeName       string
	TypeKind       ApplicationKind
	Status         ApplicationStatus
	Answers        map[string]string
	SubmittedAt    time.Time
	ReviewedBy     *string
	ReviewedAt     *time.Time
	AssignedTeamID *string
}
