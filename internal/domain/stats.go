package domain

// Stats aggregates dashboard counters.
type Stats struct {
	TotalUsers          int64 `json:"total_users"`
	TotalTeams          int64 `json:"total_teams"`
	PendingApplications int64 `json:"pending_applications"`
	StaffCount          int64 `json:"staff_count"`
	PendingReports      int64 `json:"pending_reports"`
	PendingApprovals    int64 `json:"pending_approvals"`
	OnProbation         int64 `json:"on_probation"`
}
