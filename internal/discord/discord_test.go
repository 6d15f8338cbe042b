package discord

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/notify"
)

type recorded struct {
	method string
	path   string
	body   string
}

type fakeDiscord struct {
	mu       sync.Mutex
	calls    []recorded
	failPath string
}

func (f *fakeDiscord) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, recorded{method: r.Method, path: r.URL.Path, body: string(body)})
	fail := f.failPath == r.URL.Path
	f.mu.Unlock()

	if fail {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Missing Permissions"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/users/@me/channels":
		_, _ = w.Write([]byte(`{"id":"dm-1"}`))
	case r.Method == http.MethodPost:
		_, _ = w.Write([]byte(`{"id":"msg-9","channel_id":"chan-1"}`))
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeDiscord) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.method+" "+c.path)
	}
	return out
}

func newTestClient(t *testing.T) (*Client, *fakeDiscord) {
	t.Helper()
	fake := &fakeDiscord{}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	client := NewClient(config.DiscordConfig{
		APIBase:         srv.URL,
		BotToken:        "token",
		GuildID:         "guild",
		ProbationRoleID: "role-probation",
		StaffRoleID:     "role-staff",
		RankRoleIDs:     map[string]string{"trainee": "role-trainee", "moderator": "role-mod"},
	})
	client.rest.SetRetryCount(0)
	return client, fake
}

func TestSwapRevokesThenGrants(t *testing.T) {
	client, fake := newTestClient(t)

	err := client.Swap(context.Background(), "u1", []domain.Capability{domain.CapabilityProbation, domain.RankCapability(domain.RankAdministrator)}, domain.CapabilityStaff)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"DELETE /guilds/guild/members/u1/roles/role-probation",
		"PUT /guilds/guild/members/u1/roles/role-staff",
	}, fake.paths())
}

func TestGrantFailureSurfaces(t *testing.T) {
	client, fake := newTestClient(t)
	fake.failPath = "/guilds/guild/members/u1/roles/role-staff"

	err := client.Swap(context.Background(), "u1", []domain.Capability{domain.CapabilityProbation}, domain.CapabilityStaff)
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestApprovalPromptCarriesButtons(t *testing.T) {
	client, fake := newTestClient(t)

	ref, err := client.PostApprovalPrompt(context.Background(), "chan-1", "req-1", notify.Message{Title: "Firing request"})
	require.NoError(t, err)
	assert.Equal(t, "chan-1/msg-9", ref)

	var payload messagePayload
	require.NoError(t, json.Unmarshal([]byte(fake.calls[0].body), &payload))
	require.Len(t, payload.Components, 1)
	buttons := payload.Components[0].Components
	require.Len(t, buttons, 2)
	assert.Equal(t, "approval:req-1:approve", buttons[0].CustomID)
	assert.Equal(t, "approval:req-1:reject", buttons[1].CustomID)

	require.NoError(t, client.EditPrompt(context.Background(), ref, notify.Message{Title: "done"}))
	assert.Equal(t, "PATCH /channels/chan-1/messages/msg-9", fake.paths()[1])
	assert.Contains(t, fake.calls[1].body, `"components":[]`)
}

func TestDirectMessageOpensChannel(t *testing.T) {
	client, fake := newTestClient(t)

	require.NoError(t, client.SendDirectMessage(context.Background(), "u1", notify.Message{Title: "hi"}))
	assert.Equal(t, []string{"POST /users/@me/channels", "POST /channels/dm-1/messages"}, fake.paths())
}

func TestParseCustomID(t *testing.T) {
	id, decision, ok := ParseCustomID(CustomID("abc", domain.DecisionReject))
	require.True(t, ok)
	assert.Equal(t, "abc", id)
	assert.Equal(t, domain.DecisionReject, decision)

	for _, bad := range []string{"", "approval:abc", "other:abc:approve", "approval::approve", "approval:abc:maybe"} {
		_, _, ok := ParseCustomID(bad)
		assert.False(t, ok, bad)
	}
}

func TestVerifier(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	v, err := NewVerifier(hex.EncodeToString(pub))
	require.NoError(t, err)

	body := []byte(`{"type":1}`)
	sig := hex.EncodeToString(ed25519.Sign(priv, append([]byte("1700000000"), body...)))

	assert.True(t, v.Verify(sig, "1700000000", body))
	assert.False(t, v.Verify(sig, "1700000001", body))
	assert.False(t, v.Verify("zz", "1700000000", body))

	_, err = NewVerifier("abcd")
	assert.Error(t, err)
}

func TestInteractionActor(t *testing.T) {
	in, err := ParseInteraction([]byte(`{"type":3,"member":{"user":{"id":"42"}},"data":{"custom_id":"approval:r:approve"}}`))
	require.NoError(t, err)
	assert.Equal(t, "42", in.ActorID())
	assert.Equal(t, InteractionMessageComponent, in.Type)

	in, err = ParseInteraction([]byte(`{"type":3,"user":{"id":"7"}}`))
	require.NoError(t, err)
	assert.Equal(t, "7", in.ActorID())
}
