package service

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-service/internal/domain"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

func (f *fixture) report(t *testing.T, reporterID, player string) *domain.Report {
	t.Helper()
	reporter := f.account(t, reporterID, domain.AuthorityPlayer)
	report, err := f.svc.Reports.Create(f.ctx, reporter, ReportCreateInput{
		ReportedPlayer: player,
		Category:       "rdm",
		Description:    "shot me at spawn",
	})
	require.NoError(t, err)
	return report
}

func TestCreateReportValidatesAndAnnounces(t *testing.T) {
	f := newFixture(t)
	reporter := f.account(t, "p1", domain.AuthorityPlayer)

	_, err := f.svc.Reports.Create(f.ctx, reporter, ReportCreateInput{ReportedPlayer: "x", Category: "jaywalking", Description: "d"})
	assert.True(t, apperrors.HasStatus(err, http.StatusBadRequest))
	_, err = f.svc.Reports.Create(f.ctx, reporter, ReportCreateInput{ReportedPlayer: " ", Category: "rdm", Description: "d"})
	assert.True(t, apperrors.HasStatus(err, http.StatusBadRequest))

	report := f.report(t, "p1", "Griefer")
	assert.Equal(t, domain.ReportStatusPending, report.Status)
	require.Len(t, f.notifier.channel, 1)
	assert.Equal(t, "c-reports", f.notifier.channel[0].to)
	assert.Contains(t, f.notifier.channel[0].msg.Title, "rdm")
}

func TestReportVisibility(t *testing.T) {
	f := newFixture(t)
	mine := f.report(t, "p1", "A")
	other := f.report(t, "p2", "B")
	p1 := f.get(t, "p1")

	reports, err := f.svc.Reports.List(f.ctx, p1, ReportListFilter{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, mine.ID, reports[0].ID)

	_, err = f.svc.Reports.Get(f.ctx, p1, other.ID)
	assert.True(t, apperrors.HasStatus(err, http.StatusForbidden))

	staff := f.account(t, "sm", domain.AuthorityStaffMember)
	reports, err = f.svc.Reports.List(f.ctx, staff, ReportListFilter{})
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestPunishmentRunsOnlyAfterApproval(t *testing.T) {
	f := newFixture(t)
	report := f.report(t, "p1", "Griefer")
	admin := f.account(t, "admin", domain.AuthorityStaffAdmin)

	resolved := domain.ReportStatusResolved
	updated, err := f.svc.Reports.Update(f.ctx, admin, report.ID, ReportUpdateInput{
		Status:     &resolved,
		Punishment: &PunishmentInput{Type: domain.PunishmentBan, DurationHours: 48, Reason: "rdm"},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Punishment)
	assert.Equal(t, domain.RequestStatusPending, updated.Punishment.Status)
	assert.Empty(t, f.sink.commands)
	assert.Len(t, f.notifier.prompts, 1)

	_, err = f.svc.Reports.Update(f.ctx, admin, report.ID, ReportUpdateInput{
		Punishment: &PunishmentInput{Type: domain.PunishmentWarn},
	})
	assert.True(t, apperrors.HasStatus(err, http.StatusBadRequest))

	requestID := updated.Punishment.RequestID
	_, err = f.svc.Approvals.Resolve(f.ctx, requestID, "p1", domain.DecisionApprove)
	assert.True(t, apperrors.HasStatus(err, http.StatusForbidden))
	assert.Empty(t, f.sink.commands)

	_, err = f.svc.Approvals.Resolve(f.ctx, requestID, "admin", domain.DecisionApprove)
	require.NoError(t, err)
	require.Len(t, f.sink.commands, 1)
	cmd := f.sink.commands[0]
	assert.Equal(t, domain.PunishmentBan, cmd.Action)
	assert.Equal(t, "Griefer", cmd.Player)
	assert.Equal(t, 48, cmd.DurationHours)
	assert.Equal(t, report.ID, cmd.ReportID)
	assert.Equal(t, "admin", cmd.ApprovedBy)

	stored, err := f.repos.Reports.GetByID(f.ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, stored.Punishment.Status)

	_, err = f.svc.Approvals.Resolve(f.ctx, requestID, "admin", domain.DecisionApprove)
	assert.True(t, apperrors.HasStatus(err, http.StatusBadRequest))
	assert.Len(t, f.sink.commands, 1)
}

func TestRejectedPunishmentRunsNothing(t *testing.T) {
	f := newFixture(t)
	report := f.report(t, "p1", "Griefer")
	admin := f.account(t, "admin", domain.AuthorityStaffAdmin)

	updated, err := f.svc.Reports.Update(f.ctx, admin, report.ID, ReportUpdateInput{
		Punishment: &PunishmentInput{Type: domain.PunishmentWarn, Reason: "language"},
	})
	require.NoError(t, err)

	_, err = f.svc.Approvals.Resolve(f.ctx, updated.Punishment.RequestID, "admin", domain.DecisionReject)
	require.NoError(t, err)
	assert.Empty(t, f.sink.commands)

	stored, err := f.repos.Reports.GetByID(f.ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, stored.Punishment.Status)
	assert.Len(t, f.notifier.edits, 1)
}

func TestPunishmentNoneSkipsApproval(t *testing.T) {
	f := newFixture(t)
	report := f.report(t, "p1", "Griefer")
	admin := f.account(t, "admin", domain.AuthorityStaffAdmin)

	updated, err := f.svc.Reports.Update(f.ctx, admin, report.ID, ReportUpdateInput{
		Punishment: &PunishmentInput{Type: domain.PunishmentNone},
	})
	require.NoError(t, err)
	assert.Empty(t, updated.Punishment.RequestID)
	assert.Empty(t, f.notifier.prompts)

	_, err = f.svc.Reports.Update(f.ctx, f.get(t, "p1"), report.ID, ReportUpdateInput{})
	assert.True(t, apperrors.HasStatus(err, http.StatusForbidden))
}
