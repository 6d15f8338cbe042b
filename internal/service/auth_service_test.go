package service

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-service/internal/auth"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

func (f *fixture) state(t *testing.T, redirect string) string {
	t.Helper()
	loginURL, err := f.svc.Auth.LoginURL(redirect)
	require.NoError(t, err)
	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	return parsed.Query().Get("state")
}

func TestCallbackClassifiesAndOpensSession(t *testing.T) {
	f := newFixture(t)
	f.identity.identities["code-1"] = domain.Identity{ExternalID: "u1", Username: "alice", Roles: []string{"r-staff", "r-admin"}}

	result, err := f.svc.Auth.Callback(f.ctx, "code-1", f.state(t, "/dashboard"))
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorityStaffAdmin, result.Account.Authority)
	assert.Equal(t, "/dashboard", result.Redirect)
	assert.NotEmpty(t, result.Token)

	accountID, err := f.sessions.Get(f.ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", accountID)

	me, err := f.svc.Auth.Me(f.ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	require.NoError(t, f.svc.Auth.Logout(f.ctx, result.Token))
	_, err = f.sessions.Get(f.ctx, result.Token)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	assert.NoError(t, f.svc.Auth.Logout(f.ctx, result.Token))
}

func TestCallbackDowngradeClearsTeamLeadership(t *testing.T) {
	f := newFixture(t)
	team := f.team(t, "alpha", "head-a")
	f.identity.identities["code-1"] = domain.Identity{ExternalID: "head-a", Username: "head", Roles: []string{"r-staff"}}

	result, err := f.svc.Auth.Callback(f.ctx, "code-1", f.state(t, "/"))
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorityStaffMember, result.Account.Authority)

	stored, err := f.repos.Teams.GetByID(f.ctx, team.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.HeadAdminID)
}

func TestCallbackRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Auth.Callback(f.ctx, "", f.state(t, "/"))
	assert.True(t, apperrors.HasStatus(err, http.StatusBadRequest))

	_, err = f.svc.Auth.Callback(f.ctx, "code-1", "forged")
	assert.True(t, apperrors.HasStatus(err, http.StatusBadRequest))

	_, err = f.svc.Auth.Callback(f.ctx, "unknown", f.state(t, "/"))
	assert.True(t, apperrors.HasStatus(err, http.StatusBadRequest))

	f.identity.err = errors.New("connection reset")
	_, err = f.svc.Auth.Callback(f.ctx, "code-1", f.state(t, "/"))
	assert.True(t, apperrors.HasStatus(err, http.StatusBadGateway))
}

func TestManualAuthorityLastsUntilNextLogin(t *testing.T) {
	f := newFixture(t)
	f.account(t, "u1", domain.AuthorityPlayer)

	updated, err := f.svc.Accounts.SetAuthority(f.ctx, f.super(t), "u1", domain.AuthorityStaffAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorityStaffAdmin, updated.Authority)
	assert.Equal(t, domain.AuthorityStaffAdmin, f.get(t, "u1").Authority)

	f.identity.identities["code-1"] = domain.Identity{ExternalID: "u1", Username: "alice"}
	result, err := f.svc.Auth.Callback(f.ctx, "code-1", f.state(t, "/"))
	require.NoError(t, err)
	assert.Equal(t, domain.AuthorityPlayer, result.Account.Authority)
	assert.Equal(t, domain.AuthorityPlayer, f.get(t, "u1").Authority)
}

func TestSetAuthorityRules(t *testing.T) {
	f := newFixture(t)
	admin := f.account(t, "admin", domain.AuthorityStaffAdmin)
	f.staff(t, "m", nil)

	_, err := f.svc.Accounts.SetAuthority(f.ctx, admin, "m", domain.AuthorityHeadAdmin)
	assert.True(t, apperrors.HasStatus(err, http.StatusForbidden))

	_, err = f.svc.Accounts.SetAuthority(f.ctx, f.super(t), "m", domain.AuthorityPlayer)
	assert.True(t, apperrors.HasStatus(err, http.StatusBadRequest))
	assert.Equal(t, domain.AuthorityStaffMember, f.get(t, "m").Authority)

	_, err = f.svc.Accounts.SetAuthority(f.ctx, f.super(t), superID, domain.AuthorityPlayer)
	assert.True(t, apperrors.HasStatus(err, http.StatusBadRequest))

	_, err = f.svc.Accounts.SetAuthority(f.ctx, f.super(t), "ghost", domain.AuthorityStaffAdmin)
	assert.True(t, apperrors.IsNotFound(err))

	accounts, err := f.svc.Accounts.List(f.ctx, admin, repository.AccountFilter{StaffStatus: ptr(domain.StaffStatusMember)})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "m", accounts[0].DiscordID)
}

func TestSetAuthorityBelowHeadAdminClearsLeadership(t *testing.T) {
	f := newFixture(t)
	team := f.team(t, "alpha", "head-a")

	_, err := f.svc.Accounts.SetAuthority(f.ctx, f.super(t), "head-a", domain.AuthorityStaffAdmin)
	require.NoError(t, err)
	stored, err := f.repos.Teams.GetByID(f.ctx, team.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.HeadAdminID)
}
