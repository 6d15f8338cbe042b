package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-service/internal/auth"
	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/events"
	"github.com/spec-kit/staff-service/internal/gameserver"
	"github.com/spec-kit/staff-service/internal/notify"
	"github.com/spec-kit/staff-service/internal/repository"
	"github.com/spec-kit/staff-service/internal/repository/memstore"
)

const (
	approverID = "owner"
	superID    = "super"
)

type grantCall struct {
	op   string
	user string
	caps []domain.Capability
}

type fakeGrantor struct {
	mu      sync.Mutex
	calls   []grantCall
	failFor map[string]error
}

func (g *fakeGrantor) record(op, user string, caps ...domain.Capability) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failFor[user]; err != nil {
		return err
	}
	g.calls = append(g.calls, grantCall{op: op, user: user, caps: caps})
	return nil
}

func (g *fakeGrantor) Grant(_ context.Context, userID string, c domain.Capability) error {
	return g.record("grant", userID, c)
}

func (g *fakeGrantor) Revoke(_ context.Context, userID string, c domain.Capability) error {
	return g.record("revoke", userID, c)
}

func (g *fakeGrantor) Swap(_ context.Context, userID string, old []domain.Capability, next domain.Capability) error {
	return g.record("swap", userID, append(append([]domain.Capability{}, old...), next)...)
}

func (g *fakeGrantor) callsFor(user string) []grantCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []grantCall
	for _, c := range g.calls {
		if c.user == user {
			out = append(out, c)
		}
	}
	return out
}

type sentMessage struct {
	to   string
	msg  notify.Message
	edit bool
}

type fakeNotifier struct {
	mu       sync.Mutex
	channel  []sentMessage
	direct   []sentMessage
	prompts  []sentMessage
	edits    []sentMessage
	failDMTo string
}

func (n *fakeNotifier) SendChannelMessage(_ context.Context, channelID string, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channel = append(n.channel, sentMessage{to: channelID, msg: msg})
	return nil
}

func (n *fakeNotifier) SendDirectMessage(_ context.Context, userID string, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if userID == n.failDMTo {
		return errors.New("cannot send messages to this user")
	}
	n.direct = append(n.direct, sentMessage{to: userID, msg: msg})
	return nil
}

func (n *fakeNotifier) PostApprovalPrompt(_ context.Context, channelID, requestID string, msg notify.Message) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.prompts = append(n.prompts, sentMessage{to: channelID, msg: msg})
	return channelID + "/msg-" + requestID, nil
}

func (n *fakeNotifier) EditPrompt(_ context.Context, ref string, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.edits = append(n.edits, sentMessage{to: ref, msg: msg, edit: true})
	return nil
}

func (n *fakeNotifier) directTo(user string) []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Message
	for _, m := range n.direct {
		if m.to == user {
			out = append(out, m.msg)
		}
	}
	return out
}

type fakeSink struct {
	mu       sync.Mutex
	commands []gameserver.Command
}

func (s *fakeSink) Execute(_ context.Context, cmd gameserver.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	return nil
}

type fakeIdentity struct {
	identities map[string]domain.Identity
	err        error
}

func (f *fakeIdentity) AuthURL(state string) string {
	return "https://discord.test/authorize?state=" + state
}

func (f *fakeIdentity) ExchangeCode(_ context.Context, code string) (*domain.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	identity, ok := f.identities[code]
	if !ok {
		return nil, domain.ErrInvalidGrant
	}
	return &identity, nil
}

type fixture struct {
	ctx      context.Context
	now      time.Time
	repos    *repository.Repositories
	svc      *Services
	grantor  *fakeGrantor
	notifier *fakeNotifier
	sink     *fakeSink
	identity *fakeIdentity
	sessions *auth.MemorySessionStore
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{StateSecret: "test-secret", StateTTL: time.Minute, SessionTTL: time.Hour},
		Discord: config.DiscordConfig{
			SuperAdminRoleIDs:     []string{"r-super"},
			HeadAdminRoleIDs:      []string{"r-head"},
			StaffAdminRoleIDs:     []string{"r-admin"},
			StaffMemberRoleIDs:    []string{"r-staff"},
			ApplicationsChannelID: "c-apps",
			StaffLogChannelID:     "c-log",
			ReportsChannelID:      "c-reports",
			ApprovalsChannelID:    "c-approvals",
			FiringApproverID:      approverID,
		},
		Lifecycle: config.LifecycleConfig{ProbationDuration: 7 * 24 * time.Hour, StrikeThreshold: 3},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:      context.Background(),
		now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		repos:    memstore.New().Repositories(),
		grantor:  &fakeGrantor{failFor: map[string]error{}},
		notifier: &fakeNotifier{},
		sink:     &fakeSink{},
		identity: &fakeIdentity{identities: map[string]domain.Identity{}},
		sessions: auth.NewMemorySessionStore(time.Hour),
	}
	f.svc = New(Dependencies{
		Config:     testConfig(),
		Repos:      f.repos,
		Sessions:   f.sessions,
		Identity:   f.identity,
		Notifier:   f.notifier,
		Grantor:    f.grantor,
		Commands:   f.sink,
		Dispatcher: events.NewSyncDispatcher(zap.NewNop()),
		Logger:     zap.NewNop(),
	})
	f.svc.Notifications.RegisterHandlers()

	clock := func() time.Time { return f.now }
	f.svc.Lifecycle.now = clock
	f.svc.Approvals.now = clock
	f.svc.Reports.now = clock

	f.account(t, superID, domain.AuthoritySuperAdmin)
	f.account(t, approverID, domain.AuthoritySuperAdmin)
	return f
}

func (f *fixture) account(t *testing.T, id string, authority domain.Authority) *domain.Account {
	t.Helper()
	account, err := f.repos.Accounts.UpsertLogin(f.ctx, domain.Identity{ExternalID: id, Username: "user-" + id}, authority)
	require.NoError(t, err)
	return account
}

func (f *fixture) get(t *testing.T, id string) *domain.Account {
	t.Helper()
	account, err := f.repos.Accounts.GetByID(f.ctx, id)
	require.NoError(t, err)
	return account
}

func (f *fixture) super(t *testing.T) *domain.Account {
	return f.get(t, superID)
}

func (f *fixture) team(t *testing.T, name string, headID string) *domain.Team {
	t.Helper()
	team := &domain.Team{Name: name}
	if headID != "" {
		f.account(t, headID, domain.AuthorityHeadAdmin)
		team.HeadAdminID = &headID
	}
	require.NoError(t, f.repos.Teams.Create(f.ctx, team))
	return team
}

func (f *fixture) staff(t *testing.T, id string, team *domain.Team) *domain.Account {
	t.Helper()
	f.account(t, id, domain.AuthorityPlayer)
	var teamID *string
	if team != nil {
		teamID = &team.ID
	}
	account, err := f.svc.Lifecycle.AddStaff(f.ctx, f.super(t), id, "user-"+id, teamID)
	require.NoError(t, err)
	return account
}

// assertPlayerInvariant checks that non-staff accounts carry no staff fields.
func assertPlayerInvariant(t *testing.T, f *fixture) {
	t.Helper()
	accounts, err := f.repos.Accounts.List(f.ctx, repository.AccountFilter{Limit: 1000})
	require.NoError(t, err)
	for _, a := range accounts {
		if a.StaffStatus != domain.StaffStatusPlayer {
			continue
		}
		require.Zero(t, a.Strikes, a.DiscordID)
		require.Nil(t, a.Rank, a.DiscordID)
		require.Nil(t, a.TeamID, a.DiscordID)
		require.False(t, a.Probation, a.DiscordID)
	}
}

// assertRosters checks that account.team == T.id iff account.id is in T.members.
func assertRosters(t *testing.T, f *fixture) {
	t.Helper()
	teams, err := f.repos.Teams.List(f.ctx)
	require.NoError(t, err)
	accounts, err := f.repos.Accounts.List(f.ctx, repository.AccountFilter{Limit: 1000})
	require.NoError(t, err)
	for _, a := range accounts {
		for _, team := range teams {
			onTeam := a.TeamID != nil && *a.TeamID == team.ID
			require.Equal(t, onTeam, team.HasMember(a.DiscordID), "account %s team %s", a.DiscordID, team.Name)
		}
	}
}

func ptr[T any](v T) *T { return &v }
