package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
	"github.com/spec-kit/staff-service/internal/repository/memstore"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

func TestClassifyPriority(t *testing.T) {
	c := NewClassifier(config.DiscordConfig{
		SuperAdminRoleIDs:  []string{"r-super"},
		HeadAdminRoleIDs:   []string{"r-head"},
		StaffAdminRoleIDs:  []string{"r-admin"},
		StaffMemberRoleIDs: []string{"r-staff", "r-staff-2"},
	})

	tests := []struct {
		name  string
		roles []string
		want  domain.Authority
	}{
		{"no roles", nil, domain.AuthorityPlayer},
		{"unknown roles", []string{"x", "y"}, domain.AuthorityPlayer},
		{"staff", []string{"r-staff-2"}, domain.AuthorityStaffMember},
		{"admin beats staff", []string{"r-staff", "r-admin"}, domain.AuthorityStaffAdmin},
		{"head beats admin", []string{"r-admin", "r-head"}, domain.AuthorityHeadAdmin},
		{"super beats all", []string{"r-staff", "r-head", "r-super"}, domain.AuthoritySuperAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.roles))
		})
	}
}

func TestMemorySessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	token, err := store.Create(ctx, "100")
	require.NoError(t, err)
	assert.Len(t, token, 43)

	id, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "100", id)

	now = now.Add(time.Hour)
	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	token, err = store.Create(ctx, "100")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, token))
	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStoreSweepsAbandonedSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		_, err := store.Create(ctx, "abandoned")
		require.NoError(t, err)
	}
	now = now.Add(30 * time.Minute)
	live, err := store.Create(ctx, "live")
	require.NoError(t, err)
	assert.Len(t, store.sessions, 6)

	now = now.Add(45 * time.Minute)
	_, err = store.Create(ctx, "fresh")
	require.NoError(t, err)
	assert.Len(t, store.sessions, 2)

	id, err := store.Get(ctx, live)
	require.NoError(t, err)
	assert.Equal(t, "live", id)
}

func TestStateRoundTripAndTamper(t *testing.T) {
	sm := NewStateManager("secret", time.Minute)
	state, err := sm.Issue("/dashboard")
	require.NoError(t, err)

	claims, err := sm.Verify(state)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", claims.Redirect)
	assert.NotEmpty(t, claims.Nonce)

	_, err = NewStateManager("other", time.Minute).Verify(state)
	assert.Error(t, err)
}

type gateFixture struct {
	app      *fiber.App
	sessions *MemorySessionStore
	repos    *repository.Repositories
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	repos := memstore.New().Repositories()
	sessions := NewMemorySessionStore(time.Hour)
	mw := NewAuthMiddleware("session_token", sessions, repos.Accounts, repos.Teams)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	ok := func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) }
	app.Get("/any", mw.Handle, RequireAuthenticated(), ok)
	app.Get("/admin", mw.Handle, RequireAuthority(domain.AuthorityStaffAdmin), ok)
	app.Get("/head", mw.Handle, mw.RequireHeadAdmin(), ok)
	app.Get("/super", mw.Handle, RequireSuperAdmin(), ok)
	return &gateFixture{app: app, sessions: sessions, repos: repos}
}

func (f *gateFixture) login(t *testing.T, id string, authority domain.Authority) string {
	t.Helper()
	_, err := f.repos.Accounts.UpsertLogin(context.Background(), domain.Identity{ExternalID: id, Username: id}, authority)
	require.NoError(t, err)
	token, err := f.sessions.Create(context.Background(), id)
	require.NoError(t, err)
	return token
}

func (f *gateFixture) status(t *testing.T, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "session_token", Value: token})
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestGates(t *testing.T) {
	f := newGateFixture(t)
	player := f.login(t, "1", domain.AuthorityPlayer)
	admin := f.login(t, "2", domain.AuthorityStaffAdmin)
	head := f.login(t, "3", domain.AuthorityHeadAdmin)
	super := f.login(t, "4", domain.AuthoritySuperAdmin)

	leader := "3"
	require.NoError(t, f.repos.Teams.Create(context.Background(), &domain.Team{Name: "alpha", HeadAdminID: &leader}))

	assert.Equal(t, http.StatusUnauthorized, f.status(t, "/any", ""))
	assert.Equal(t, http.StatusUnauthorized, f.status(t, "/any", "bogus"))
	assert.Equal(t, http.StatusNoContent, f.status(t, "/any", player))

	assert.Equal(t, http.StatusForbidden, f.status(t, "/admin", player))
	assert.Equal(t, http.StatusNoContent, f.status(t, "/admin", admin))
	assert.Equal(t, http.StatusNoContent, f.status(t, "/admin", super))

	assert.Equal(t, http.StatusForbidden, f.status(t, "/head", admin))
	assert.Equal(t, http.StatusNoContent, f.status(t, "/head", head))
	assert.Equal(t, http.StatusNoContent, f.status(t, "/head", super))

	assert.Equal(t, http.StatusForbidden, f.status(t, "/super", head))
	assert.Equal(t, http.StatusNoContent, f.status(t, "/super", super))
	assert.Equal(t, http.StatusUnauthorized, f.status(t, "/super", ""))
}
