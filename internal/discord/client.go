// Package discord talks to the Discord REST API: OAuth identity lookup, bot messages,
// interactive approval prompts and guild role grants.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/notify"
)

// APIError is a non-2xx answer from Discord.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord api status %d: %s", e.Status, e.Body)
}

// IsNotFound reports whether err is a Discord 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client is the bot-token REST client. It delivers messages and manages guild roles.
type Client struct {
	rest    *resty.Client
	guildID string
	roles   map[domain.Capability]string
}

// NewClient builds a bot client from configuration.
func NewClient(cfg config.DiscordConfig) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBase, "/")).
		SetHeader("Authorization", "Bot "+cfg.BotToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		})

	roles := map[domain.Capability]string{
		domain.CapabilityProbation: cfg.ProbationRoleID,
		domain.CapabilityStaff:     cfg.StaffRoleID,
		domain.CapabilityWhitelist: cfg.WhitelistRoleID,
	}
	for _, r := range domain.Ranks {
		roles[domain.RankCapability(r)] = cfg.RankRoleIDs[string(r)]
	}
	return &Client{rest: rest, guildID: cfg.GuildID, roles: roles}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
}

type button struct {
	Type     int    `json:"type"`
	Style    int    `json:"style"`
	Label    string `json:"label"`
	CustomID string `json:"custom_id"`
}

type actionRow struct {
	Type       int      `json:"type"`
	Components []button `json:"components"`
}

type messagePayload struct {
	Content    string      `json:"content,omitempty"`
	Embeds     []embed     `json:"embeds"`
	Components []actionRow `json:"components"`
}

type messageResponse struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

const (
	componentActionRow = 1
	componentButton    = 2
	buttonSuccess      = 3
	buttonDanger       = 4
)

func toEmbed(msg notify.Message) embed {
	e := embed{Title: msg.Title, Description: msg.Body, Color: msg.Color}
	for _, f := range msg.Fields {
		e.Fields = append(e.Fields, embedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return e
}

// SendChannelMessage posts msg to a channel.
func (c *Client) SendChannelMessage(ctx context.Context, channelID string, msg notify.Message) error {
	if channelID == "" {
		return nil
	}
	_, err := c.postMessage(ctx, channelID, messagePayload{Embeds: []embed{toEmbed(msg)}, Components: []actionRow{}})
	return err
}

// SendDirectMessage opens a DM channel with the user and posts msg.
func (c *Client) SendDirectMessage(ctx context.Context, userID string, msg notify.Message) error {
	var dm struct {
		ID string `json:"id"`
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"recipient_id": userID}).
		SetResult(&dm).
		Post("/users/@me/channels")
	if err := check(resp, err); err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	_, err = c.postMessage(ctx, dm.ID, messagePayload{Embeds: []embed{toEmbed(msg)}, Components: []actionRow{}})
	return err
}

// PostApprovalPrompt posts msg with approve and reject buttons keyed by requestID. The
// returned reference identifies the message for EditPrompt.
func (c *Client) PostApprovalPrompt(ctx context.Context, channelID, requestID string, msg notify.Message) (string, error) {
	payload := messagePayload{
		Embeds: []embed{toEmbed(msg)},
		Components: []actionRow{{
			Type: componentActionRow,
			Components: []button{
				{Type: componentButton, Style: buttonSuccess, Label: "Approve", CustomID: CustomID(requestID, domain.DecisionApprove)},
				{Type: componentButton, Style: buttonDanger, Label: "Reject", CustomID: CustomID(requestID, domain.DecisionReject)},
			},
		}},
	}
	sent, err := c.postMessage(ctx, channelID, payload)
	if err != nil {
		return "", err
	}
	return sent.ChannelID + "/" + sent.ID, nil
}

// EditPrompt replaces the prompt content and removes its buttons.
func (c *Client) EditPrompt(ctx context.Context, ref string, msg notify.Message) error {
	channelID, messageID, ok := strings.Cut(ref, "/")
	if !ok {
		return fmt.Errorf("invalid message reference %q", ref)
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(messagePayload{Embeds: []embed{toEmbed(msg)}, Components: []actionRow{}}).
		Patch("/channels/" + channelID + "/messages/" + messageID)
	return check(resp, err)
}

func (c *Client) postMessage(ctx context.Context, channelID string, payload messagePayload) (*messageResponse, error) {
	var sent messageResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&sent).
		Post("/channels/" + channelID + "/messages")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	if sent.ChannelID == "" {
		sent.ChannelID = channelID
	}
	return &sent, nil
}

// Grant adds the guild role mapped to capability. Unmapped capabilities are skipped.
func (c *Client) Grant(ctx context.Context, userID string, capability domain.Capability) error {
	roleID := c.roles[capability]
	if roleID == "" {
		return nil
	}
	resp, err := c.rest.R().SetContext(ctx).Put(c.memberRolePath(userID, roleID))
	return check(resp, err)
}

// Revoke removes the guild role mapped to capability. A missing member or role counts as done.
func (c *Client) Revoke(ctx context.Context, userID string, capability domain.Capability) error {
	roleID := c.roles[capability]
	if roleID == "" {
		return nil
	}
	resp, err := c.rest.R().SetContext(ctx).Delete(c.memberRolePath(userID, roleID))
	if err := check(resp, err); err != nil && !IsNotFound(err) {
		return err
	}
	return nil
}

// Swap revokes every capability in old and grants next. It stops at the first failure so
// the caller can retry the whole swap.
func (c *Client) Swap(ctx context.Context, userID string, old []domain.Capability, next domain.Capability) error {
	for _, capability := range old {
		if capability == next {
			continue
		}
		if err := c.Revoke(ctx, userID, capability); err != nil {
			return fmt.Errorf("revoke %s: %w", capability, err)
		}
	}
	if err := c.Grant(ctx, userID, next); err != nil {
		return fmt.Errorf("grant %s: %w", next, err)
	}
	return nil
}

func (c *Client) memberRolePath(userID, roleID string) string {
	return "/guilds/" + c.guildID + "/members/" + userID + "/roles/" + roleID
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
