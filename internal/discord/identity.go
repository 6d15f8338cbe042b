package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/domain"
)

// Endpoint is Discord's OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// IdentityProvider exchanges an OAuth code for the user's identity and guild roles.
type IdentityProvider struct {
	oauth   *oauth2.Config
	rest    *resty.Client
	guildID string
}

// NewIdentityProvider builds the provider.
func NewIdentityProvider(cfg config.DiscordConfig) *IdentityProvider {
	return &IdentityProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"identify", "guilds.members.read"},
			Endpoint:     Endpoint,
		},
		rest:    resty.New().SetBaseURL(strings.TrimRight(cfg.APIBase, "/")).SetTimeout(10 * time.Second),
		guildID: cfg.GuildID,
	}
}

// AuthURL returns the consent URL carrying state.
func (p *IdentityProvider) AuthURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "none"))
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

type guildMember struct {
	Roles []string `json:"roles"`
}

// ExchangeCode trades code for a token and resolves the user and their guild roles.
// A user who is not a guild member resolves with no roles.
func (p *IdentityProvider) ExchangeCode(ctx context.Context, code string) (*domain.Identity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGrant, err)
		}
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	bearer := token.Type() + " " + token.AccessToken

	var user discordUser
	resp, err := p.rest.R().
		SetContext(ctx).
		SetHeader("Authorization", bearer).
		SetResult(&user).
		Get("/users/@me")
	if err := check(resp, err); err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}

	identity := &domain.Identity{
		ExternalID: user.ID,
		Username:   user.Username,
		Avatar:     user.Avatar,
	}
	if user.GlobalName != "" {
		identity.Username = user.GlobalName
	}

	if p.guildID == "" {
		return identity, nil
	}
	var member guildMember
	resp, err = p.rest.R().
		SetContext(ctx).
		SetHeader("Authorization", bearer).
		SetResult(&member).
		Get("/users/@me/guilds/" + p.guildID + "/member")
	if err := check(resp, err); err != nil {
		if IsNotFound(err) {
			return identity, nil
		}
		return nil, fmt.Errorf("fetch guild member: %w", err)
	}
	identity.Roles = member.Roles
	return identity, nil
}
