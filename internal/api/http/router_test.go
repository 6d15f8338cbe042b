package http

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-service/internal/api/http/handlers"
	"github.com/spec-kit/staff-service/internal/auth"
	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/discord"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/events"
	"github.com/spec-kit/staff-service/internal/observability"
	"github.com/spec-kit/staff-service/internal/repository"
	"github.com/spec-kit/staff-service/internal/repository/memstore"
	"github.com/spec-kit/staff-service/internal/service"
)

const cookieName = "staff_session"

type stubIdentity struct{}

func (stubIdentity) AuthURL(state string) string {
	return "https://discord.test/oauth2/authorize?state=" + url.QueryEscape(state)
}

func (stubIdentity) ExchangeCode(_ context.Context, code string) (*domain.Identity, error) {
	if code != "good" {
		return nil, domain.ErrInvalidGrant
	}
	return &domain.Identity{ExternalID: "u-oauth", Username: "oauth", Roles: []string{"r-admin"}}, nil
}

type apiFixture struct {
	app      *fiber.App
	repos    *repository.Repositories
	sessions *auth.MemorySessionStore
	svc      *service.Services
	signKey  ed25519.PrivateKey
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	verifier, err := discord.NewVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)

	cfg := config.Config{
		Auth: config.AuthConfig{StateSecret: "secret", StateTTL: time.Minute, SessionTTL: time.Hour, CookieName: cookieName},
		Discord: config.DiscordConfig{
			StaffAdminRoleIDs: []string{"r-admin"},
			FiringApproverID:  "owner",
		},
	}
	repos := memstore.New().Repositories()
	sessions := auth.NewMemorySessionStore(time.Hour)
	svc := service.New(service.Dependencies{
		Config:     cfg,
		Repos:      repos,
		Sessions:   sessions,
		Identity:   stubIdentity{},
		Dispatcher: events.NewSyncDispatcher(zap.NewNop()),
		Logger:     zap.NewNop(),
	})
	svc.Notifications.RegisterHandlers()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, MiddlewareConfig{Logger: logger, Metrics: metrics, Timeout: time.Second})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("staff-service", "test", nil),
		Auth:           handlers.NewAuthHandler(svc.Auth, handlers.CookieConfig{Name: cookieName, TTL: time.Hour, FrontendURL: "https://panel.test"}),
		Accounts:       handlers.NewAccountsHandler(svc.Accounts),
		Applications:   handlers.NewApplicationsHandler(svc.Applications),
		Reports:        handlers.NewReportsHandler(svc.Reports),
		Teams:          handlers.NewTeamsHandler(svc.Teams),
		Staff:          handlers.NewStaffHandler(svc.Lifecycle, svc.Teams),
		Approvals:      handlers.NewApprovalsHandler(svc.Approvals, verifier, logger),
		Stats:          handlers.NewStatsHandler(svc.Stats),
		AuthMiddleware: auth.NewAuthMiddleware(cookieName, sessions, repos.Accounts, repos.Teams),
		Metrics:        metrics,
	})
	return &apiFixture{app: app, repos: repos, sessions: sessions, svc: svc, signKey: priv}
}

func (f *apiFixture) login(t *testing.T, id string, authority domain.Authority) string {
	t.Helper()
	_, err := f.repos.Accounts.UpsertLogin(context.Background(), domain.Identity{ExternalID: id, Username: id}, authority)
	require.NoError(t, err)
	token, err := f.sessions.Create(context.Background(), id)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (*nethttp.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.AddCookie(&nethttp.Cookie{Name: cookieName, Value: token})
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	decoded := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func (f *apiFixture) createType(t *testing.T, token string) string {
	t.Helper()
	resp, body := f.do(t, fiber.MethodPost, "/api/application-types", token, map[string]any{
		"name": "Staff", "kind": "staff", "questions": []string{"Why?"},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return body["data"].(map[string]any)["id"].(string)
}

func dataList(t *testing.T, body map[string]any) []any {
	t.Helper()
	items, ok := body["data"].([]any)
	require.True(t, ok, "data is not a list: %v", body)
	return items
}

func TestApplicationsVisibility(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.login(t, "admin", domain.AuthorityStaffAdmin)
	p1 := f.login(t, "p1", domain.AuthorityPlayer)
	p2 := f.login(t, "p2", domain.AuthorityPlayer)
	typeID := f.createType(t, admin)

	for _, token := range []string{p1, p2} {
		resp, _ := f.do(t, fiber.MethodPost, "/api/applications", token, map[string]any{
			"type_id": typeID, "answers": map[string]string{"Why?": "fun"},
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp, body := f.do(t, fiber.MethodGet, "/api/applications", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	resp, body = f.do(t, fiber.MethodGet, "/api/applications", p1, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	items := dataList(t, body)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].(map[string]any)["applicant_id"])

	resp, body = f.do(t, fiber.MethodGet, "/api/applications", admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, dataList(t, body), 2)
}

func TestDuplicatePendingApplicationIs400(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.login(t, "admin", domain.AuthorityStaffAdmin)
	p1 := f.login(t, "p1", domain.AuthorityPlayer)
	typeID := f.createType(t, admin)
	payload := map[string]any{"type_id": typeID, "answers": map[string]string{"Why?": "fun"}}

	resp, _ := f.do(t, fiber.MethodPost, "/api/applications", p1, payload)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp, body := f.do(t, fiber.MethodPost, "/api/applications", p1, payload)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CONFLICT", body["error"].(map[string]any)["code"])
}

func TestGatesReturn403(t *testing.T) {
	f := newAPIFixture(t)
	player := f.login(t, "p1", domain.AuthorityPlayer)
	head := f.login(t, "head", domain.AuthorityHeadAdmin)

	resp, _ := f.do(t, fiber.MethodGet, "/api/stats", player, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, fiber.MethodPost, "/api/super-admin/strikes/remove/p1", head, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, fiber.MethodGet, "/api/staff/my-team", head, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = f.do(t, fiber.MethodPost, "/api/application-types", player, map[string]any{"name": "x"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestUserAdministration(t *testing.T) {
	f := newAPIFixture(t)
	super := f.login(t, "super", domain.AuthoritySuperAdmin)
	admin := f.login(t, "admin", domain.AuthorityStaffAdmin)
	p1 := f.login(t, "p1", domain.AuthorityPlayer)

	resp, _ := f.do(t, fiber.MethodGet, "/api/users", p1, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body := f.do(t, fiber.MethodGet, "/api/users", admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, dataList(t, body), 3)

	resp, body = f.do(t, fiber.MethodGet, "/api/users?staff_status=bogus", admin, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, fiber.MethodPut, "/api/users/p1/role", admin, map[string]any{"authority": "staff_admin"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body = f.do(t, fiber.MethodPut, "/api/users/p1/role", super, map[string]any{"authority": "emperor"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])

	resp, _ = f.do(t, fiber.MethodPut, "/api/users/ghost/role", super, map[string]any{"authority": "staff_admin"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = f.do(t, fiber.MethodPut, "/api/users/p1/role", super, map[string]any{"authority": "staff_admin"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "staff_admin", body["data"].(map[string]any)["authority"])

	resp, _ = f.do(t, fiber.MethodGet, "/api/users", p1, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestStaffFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	super := f.login(t, "super", domain.AuthoritySuperAdmin)
	head := f.login(t, "head", domain.AuthorityHeadAdmin)
	f.login(t, "m", domain.AuthorityPlayer)

	resp, body := f.do(t, fiber.MethodPost, "/api/staff-teams", super, map[string]any{"name": "alpha", "head_admin_id": "head"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	teamID := body["data"].(map[string]any)["id"].(string)

	resp, _ = f.do(t, fiber.MethodPost, "/api/super-admin/staff/add", super, map[string]any{"discord_id": "m", "username": "m"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, body = f.do(t, fiber.MethodGet, "/api/staff/my-team", head, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	view := body["data"].(map[string]any)
	assert.Equal(t, teamID, view["team"].(map[string]any)["id"])
	assert.Len(t, view["members"], 1)

	resp, body = f.do(t, fiber.MethodPost, "/api/staff/my-team/members/m/strike", head, map[string]any{"reason": "late"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["data"].(map[string]any)["strikes"])

	resp, _ = f.do(t, fiber.MethodPost, "/api/super-admin/strikes/remove/m", super, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, body = f.do(t, fiber.MethodPost, "/api/super-admin/strikes/remove/m", super, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CONFLICT", body["error"].(map[string]any)["code"])

	resp, body = f.do(t, fiber.MethodGet, "/api/staff", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	roster := dataList(t, body)
	require.Len(t, roster, 1)
	assert.Equal(t, "alpha", roster[0].(map[string]any)["team_name"])

	resp, _ = f.do(t, fiber.MethodPost, "/api/super-admin/staff/remove/m", super, map[string]any{"reason": "inactive"})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	member, err := f.repos.Accounts.GetByID(context.Background(), "m")
	require.NoError(t, err)
	assert.False(t, member.IsStaff())
}

func TestLoginCallbackSetsCookie(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, fiber.MethodGet, "/api/auth/login?redirect=/applications", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	loginURL, err := url.Parse(body["data"].(map[string]any)["url"].(string))
	require.NoError(t, err)
	state := loginURL.Query().Get("state")

	resp, _ = f.do(t, fiber.MethodGet, "/api/auth/callback?code=bad&state="+url.QueryEscape(state), "", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, fiber.MethodGet, "/api/auth/callback?code=good&state="+url.QueryEscape(state), "", nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://panel.test/applications", resp.Header.Get(fiber.HeaderLocation))

	var token string
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			token = c.Value
			assert.True(t, c.HttpOnly)
		}
	}
	require.NotEmpty(t, token)

	resp, body = f.do(t, fiber.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "staff_admin", body["data"].(map[string]any)["authority"])

	resp, _ = f.do(t, fiber.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, fiber.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func (f *apiFixture) interaction(t *testing.T, payload map[string]any, sign bool) (*nethttp.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	ts := "1700000000"
	req := httptest.NewRequest(fiber.MethodPost, "/api/discord/interactions", bytes.NewReader(raw))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-Signature-Timestamp", ts)
	sig := ed25519.Sign(f.signKey, append([]byte(ts), raw...))
	if !sign {
		sig[0] ^= 0xff
	}
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(sig))
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	decoded := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestInteractionsResolveOnce(t *testing.T) {
	f := newAPIFixture(t)
	f.login(t, "admin", domain.AuthorityStaffAdmin)
	req := &domain.ApprovalRequest{
		Kind:        domain.RequestKindPunishment,
		TargetID:    "Griefer",
		RequestedBy: "admin",
		Punishment:  &domain.Punishment{Type: domain.PunishmentWarn},
	}
	require.NoError(t, f.repos.Approvals.Create(context.Background(), req))

	resp, _ := f.interaction(t, map[string]any{"type": discord.InteractionPing}, false)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body := f.interaction(t, map[string]any{"type": discord.InteractionPing}, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, discord.CallbackPong, body["type"])

	click := map[string]any{
		"type":   discord.InteractionMessageComponent,
		"member": map[string]any{"user": map[string]any{"id": "admin"}},
		"data":   map[string]any{"custom_id": discord.CustomID(req.ID, domain.DecisionApprove)},
	}
	resp, body = f.interaction(t, click, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body["data"].(map[string]any)["content"], "approved")

	resp, body = f.interaction(t, click, true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body["data"].(map[string]any)["content"], "already resolved")

	stored, err := f.repos.Approvals.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, stored.Status)
}

func TestOperationalEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	resp, body := f.do(t, fiber.MethodGet, "/health/live", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "alive", body["status"])

	resp, _ = f.do(t, fiber.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, fiber.MethodGet, "/metrics", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = f.do(t, fiber.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}
