package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
)

func newTeam(t *testing.T, repos *repository.Repositories, name string) *domain.Team {
	t.Helper()
	team := &domain.Team{Name: name}
	require.NoError(t, repos.Teams.Create(context.Background(), team))
	return team
}

func assertRosterConsistent(t *testing.T, repos *repository.Repositories) {
	t.Helper()
	ctx := context.Background()
	teams, err := repos.Teams.List(ctx)
	require.NoError(t, err)
	accounts, err := repos.Accounts.List(ctx, repository.AccountFilter{Limit: 1000})
	require.NoError(t, err)

	for _, account := range accounts {
		for _, team := range teams {
			onRoster := team.HasMember(account.DiscordID)
			references := account.TeamID != nil && *account.TeamID == team.ID
			assert.Equal(t, references, onRoster, "account %s team %s", account.DiscordID, team.Name)
		}
	}
}

func TestEnrollTransferResetKeepRosterConsistent(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	alpha := newTeam(t, repos, "alpha")
	bravo := newTeam(t, repos, "bravo")

	_, err := repos.Accounts.EnsureAccount(ctx, "100", "mira")
	require.NoError(t, err)

	account, err := repos.Accounts.Enroll(ctx, domain.Enrollment{
		AccountID:    "100",
		TeamID:       &alpha.ID,
		ProbationEnd: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StaffStatusMember, account.StaffStatus)
	assert.Equal(t, domain.RankTrainee, *account.Rank)
	assert.Empty(t, account.Notes)
	assertRosterConsistent(t, repos)

	_, err = repos.Accounts.TransferTeam(ctx, "100", bravo.ID, domain.Note{Kind: domain.NoteKindSystem})
	require.NoError(t, err)
	assertRosterConsistent(t, repos)

	prior, err := repos.Accounts.Reset(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, bravo.ID, *prior.TeamID)
	assertRosterConsistent(t, repos)

	after, err := repos.Accounts.GetByID(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, domain.StaffStatusPlayer, after.StaffStatus)
	assert.Nil(t, after.TeamID)
	assert.Nil(t, after.Rank)
	assert.Zero(t, after.Strikes)
	assert.False(t, after.Probation)

	_, err = repos.Accounts.Reset(ctx, "100")
	assert.ErrorIs(t, err, repository.ErrStateConflict)
}

func TestDeleteTeamClearsMemberReferences(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	team := newTeam(t, repos, "alpha")
	_, err := repos.Accounts.EnsureAccount(ctx, "100", "mira")
	require.NoError(t, err)
	_, err = repos.Accounts.Enroll(ctx, domain.Enrollment{AccountID: "100", TeamID: &team.ID, ProbationEnd: time.Now()})
	require.NoError(t, err)

	require.NoError(t, repos.Teams.Delete(ctx, team.ID))

	account, err := repos.Accounts.GetByID(ctx, "100")
	require.NoError(t, err)
	assert.Nil(t, account.TeamID)
	assert.ErrorIs(t, repos.Teams.Delete(ctx, team.ID), repository.ErrNotFound)
}

func TestRemoveStrikeFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	team := newTeam(t, repos, "alpha")
	_, err := repos.Accounts.EnsureAccount(ctx, "100", "mira")
	require.NoError(t, err)
	_, err = repos.Accounts.Enroll(ctx, domain.Enrollment{AccountID: "100", TeamID: &team.ID, ProbationEnd: time.Now()})
	require.NoError(t, err)

	account, err := repos.Accounts.AddStrike(ctx, "100", team.ID, domain.Note{Kind: domain.NoteKindStrike})
	require.NoError(t, err)
	assert.Equal(t, 1, account.Strikes)

	account, err = repos.Accounts.RemoveStrike(ctx, "100", domain.Note{Kind: domain.NoteKindStrikeRemoved})
	require.NoError(t, err)
	assert.Equal(t, 0, account.Strikes)

	_, err = repos.Accounts.RemoveStrike(ctx, "100", domain.Note{})
	assert.ErrorIs(t, err, repository.ErrStateConflict)

	_, err = repos.Accounts.AddStrike(ctx, "100", "another-team", domain.Note{})
	assert.ErrorIs(t, err, repository.ErrStateConflict)

	_, err = repos.Accounts.AddStrike(ctx, "missing", team.ID, domain.Note{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestApplicationOnePendingPerType(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()

	first := &domain.Application{ApplicantID: "100", TypeID: "type-a"}
	require.NoError(t, repos.Applications.Create(ctx, first))
	assert.ErrorIs(t, repos.Applications.Create(ctx, &domain.Application{ApplicantID: "100", TypeID: "type-a"}), repository.ErrDuplicatePending)
	assert.NoError(t, repos.Applications.Create(ctx, &domain.Application{ApplicantID: "100", TypeID: "type-b"}))

	_, err := repos.Applications.Review(ctx, first.ID, repository.ApplicationReview{Status: domain.ApplicationStatusRejected, ReviewerID: "1"})
	require.NoError(t, err)
	_, err = repos.Applications.Review(ctx, first.ID, repository.ApplicationReview{Status: domain.ApplicationStatusApproved, ReviewerID: "1"})
	assert.ErrorIs(t, err, repository.ErrStateConflict)

	assert.NoError(t, repos.Applications.Create(ctx, &domain.Application{ApplicantID: "100", TypeID: "type-a"}))
}

func TestClaimIsWonOnce(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	req := &domain.ApprovalRequest{Kind: domain.RequestKindFiring, TargetID: "100"}
	require.NoError(t, repos.Approvals.Create(ctx, req))
	assert.ErrorIs(t, repos.Approvals.Create(ctx, &domain.ApprovalRequest{Kind: domain.RequestKindFiring, TargetID: "100"}), repository.ErrDuplicatePending)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repos.Approvals.Claim(ctx, req.ID, domain.RequestStatusApproved, "approver", time.Now()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	_, err := repos.Approvals.Claim(ctx, "missing", domain.RequestStatusApproved, "approver", time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLoginBelowHeadAdminClearsLeadership(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	lead := "200"
	team := &domain.Team{Name: "alpha", HeadAdminID: &lead}
	require.NoError(t, repos.Teams.Create(ctx, team))

	_, err := repos.Accounts.UpsertLogin(ctx, domain.Identity{ExternalID: lead, Username: "lead"}, domain.AuthorityHeadAdmin)
	require.NoError(t, err)
	got, err := repos.Teams.GetByHeadAdmin(ctx, lead)
	require.NoError(t, err)
	assert.Equal(t, team.ID, got.ID)

	_, err = repos.Accounts.UpsertLogin(ctx, domain.Identity{ExternalID: lead, Username: "lead"}, domain.AuthorityPlayer)
	require.NoError(t, err)
	_, err = repos.Teams.GetByHeadAdmin(ctx, lead)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOnePendingPunishmentPerReport(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	report := "report-1"
	other := "report-2"
	punishment := func(reportID *string) *domain.ApprovalRequest {
		return &domain.ApprovalRequest{Kind: domain.RequestKindPunishment, TargetID: "griefer", ReportID: reportID}
	}

	first := punishment(&report)
	require.NoError(t, repos.Approvals.Create(ctx, first))
	assert.ErrorIs(t, repos.Approvals.Create(ctx, punishment(&report)), repository.ErrDuplicatePending)
	require.NoError(t, repos.Approvals.Create(ctx, punishment(&other)))

	_, err := repos.Approvals.Claim(ctx, first.ID, domain.RequestStatusRejected, "approver", time.Now())
	require.NoError(t, err)
	assert.NoError(t, repos.Approvals.Create(ctx, punishment(&report)))
}

func TestApproveAndEnrollIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	team := newTeam(t, repos, "alpha")
	_, err := repos.Accounts.EnsureAccount(ctx, "100", "alice")
	require.NoError(t, err)
	app := &domain.Application{ApplicantID: "100", TypeID: "type-a", TypeKind: domain.ApplicationKindStaff}
	require.NoError(t, repos.Applications.Create(ctx, app))
	review := repository.ApplicationReview{ReviewerID: "admin", ReviewedAt: time.Now()}

	missing := "missing"
	_, _, err = repos.Applications.ApproveAndEnroll(ctx, app.ID, review, domain.Enrollment{AccountID: "100", TeamID: &missing, ProbationEnd: time.Now()})
	assert.ErrorIs(t, err, repository.ErrTeamNotFound)
	stored, err := repos.Applications.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationStatusPending, stored.Status)

	reviewed, account, err := repos.Applications.ApproveAndEnroll(ctx, app.ID, review, domain.Enrollment{AccountID: "100", TeamID: &team.ID, ProbationEnd: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationStatusApproved, reviewed.Status)
	assert.Equal(t, team.ID, *reviewed.AssignedTeamID)
	assert.Equal(t, domain.StaffStatusMember, account.StaffStatus)
	assertRosterConsistent(t, repos)

	_, _, err = repos.Applications.ApproveAndEnroll(ctx, app.ID, review, domain.Enrollment{AccountID: "100", TeamID: &team.ID})
	assert.ErrorIs(t, err, repository.ErrStateConflict)

	_, err = repos.Accounts.Enroll(ctx, domain.Enrollment{AccountID: "100", TeamID: &team.ID})
	assert.ErrorIs(t, err, repository.ErrAlreadyStaff)
}

func TestSetAuthorityKeepsStaffAboveAuthorityPlayer(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	_, err := repos.Accounts.EnsureAccount(ctx, "100", "alice")
	require.NoError(t, err)

	account, err := repos.Accounts.SetAuthority(ctx, "100", domain.AuthorityStaffAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorityStaffAdmin, account.Authority)

	_, err = repos.Accounts.Enroll(ctx, domain.Enrollment{AccountID: "100"})
	require.NoError(t, err)
	_, err = repos.Accounts.SetAuthority(ctx, "100", domain.AuthorityPlayer)
	assert.ErrorIs(t, err, repository.ErrStateConflict)

	_, err = repos.Accounts.SetAuthority(ctx, "ghost", domain.AuthorityStaffAdmin)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
