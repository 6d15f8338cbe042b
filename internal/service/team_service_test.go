package service

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-service/internal/domain"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

func TestCreateTeamValidatesHeadAdmin(t *testing.T) {
	f := newFixture(t)
	f.account(t, "sm", domain.AuthorityStaffMember)
	f.account(t, "ha", domain.AuthorityHeadAdmin)
	sm, ha := "sm", "ha"

	_, err := f.svc.Teams.Create(f.ctx, f.get(t, "ha"), TeamInput{Name: "alpha"})
	assert.True(t, apperrors.HasStatus(err, http.StatusForbidden))

	_, err = f.svc.Teams.Create(f.ctx, f.super(t), TeamInput{Name: "alpha", HeadAdminID: &sm})
	assert.True(t, apperrors.HasStatus(err, http.StatusBadRequest))

	alpha, err := f.svc.Teams.Create(f.ctx, f.super(t), TeamInput{Name: "alpha", HeadAdminID: &ha})
	require.NoError(t, err)

	_, err = f.svc.Teams.Create(f.ctx, f.super(t), TeamInput{Name: "bravo", HeadAdminID: &ha})
	assert.True(t, apperrors.HasStatus(err, http.StatusBadRequest))

	updated, err := f.svc.Teams.Update(f.ctx, f.super(t), alpha.ID, TeamInput{Name: "alpha prime", HeadAdminID: &ha})
	require.NoError(t, err)
	assert.Equal(t, "alpha prime", updated.Name)
}

func TestDeleteTeamKeepsMembersAsStaff(t *testing.T) {
	f := newFixture(t)
	team := f.team(t, "alpha", "head-a")
	f.staff(t, "m", team)

	require.NoError(t, f.svc.Teams.Delete(f.ctx, f.super(t), team.ID))
	member := f.get(t, "m")
	assert.True(t, member.IsStaff())
	assert.Nil(t, member.TeamID)
	assertRosters(t, f)

	err := f.svc.Teams.Delete(f.ctx, f.super(t), team.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRosterGroupsMembers(t *testing.T) {
	f := newFixture(t)
	alpha := f.team(t, "alpha", "head-a")
	bravo := f.team(t, "bravo", "")
	f.staff(t, "m1", alpha)
	f.staff(t, "auto", nil)

	entries, err := f.svc.Teams.Roster(f.ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha", entries[0].Team.Name)
	require.NotNil(t, entries[0].HeadAdmin)
	assert.Equal(t, "head-a", entries[0].HeadAdmin.DiscordID)
	require.Len(t, entries[0].Members, 1)
	assert.Equal(t, "m1", entries[0].Members[0].DiscordID)
	assert.Equal(t, "bravo", entries[1].Team.Name)
	require.Len(t, entries[1].Members, 1)
	assert.Equal(t, "auto", entries[1].Members[0].DiscordID)

	require.NoError(t, f.svc.Teams.Delete(f.ctx, f.super(t), bravo.ID))
	entries, err = f.svc.Teams.Roster(f.ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Unassigned", entries[1].Team.Name)
	assert.Equal(t, "auto", entries[1].Members[0].DiscordID)
}

func TestStatsRequireStaffAdmin(t *testing.T) {
	f := newFixture(t)
	team := f.team(t, "alpha", "head-a")
	f.staff(t, "m", team)
	f.apply(t, "p1", f.staffType(t))

	_, err := f.svc.Stats.Stats(f.ctx, f.get(t, "p1"))
	assert.True(t, apperrors.HasStatus(err, http.StatusForbidden))

	stats, err := f.svc.Stats.Stats(f.ctx, f.super(t))
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalTeams)
	assert.EqualValues(t, 1, stats.StaffCount)
	assert.EqualValues(t, 1, stats.OnProbation)
	assert.EqualValues(t, 1, stats.PendingApplications)
}
