package discord

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/spec-kit/staff-service/internal/domain"
)

const customIDPrefix = "approval"

// Interaction types and callback types used by the approval buttons.
const (
	InteractionPing             = 1
	InteractionMessageComponent = 3

	CallbackPong         = 1
	CallbackChannelReply = 4

	flagEphemeral = 1 << 6
)

// CustomID encodes a button id for an approval decision.
func CustomID(requestID string, decision domain.Decision) string {
	return customIDPrefix + ":" + requestID + ":" + string(decision)
}

// ParseCustomID decodes a button id produced by CustomID.
func ParseCustomID(customID string) (string, domain.Decision, bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 || parts[0] != customIDPrefix || parts[1] == "" {
		return "", "", false
	}
	decision := domain.Decision(parts[2])
	if _, ok := decision.Status(); !ok {
		return "", "", false
	}
	return parts[1], decision, true
}

// Verifier checks the Ed25519 signature Discord puts on interaction webhooks.
type Verifier struct {
	key ed25519.PublicKey
}

// NewVerifier parses the application's hex public key.
func NewVerifier(publicKeyHex string) (*Verifier, error) {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("discord public key has wrong length")
	}
	return &Verifier{key: ed25519.PublicKey(raw)}, nil
}

// Verify reports whether signatureHex signs timestamp followed by body.
func (v *Verifier) Verify(signatureHex, timestamp string, body []byte) bool {
	if v == nil {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, body...)
	return ed25519.Verify(v.key, msg, sig)
}

type interactionUser struct {
	ID string `json:"id"`
}

// Interaction is the subset of an interaction webhook the service reads.
type Interaction struct {
	Type   int `json:"type"`
	Member *struct {
		User interactionUser `json:"user"`
	} `json:"member"`
	User *interactionUser `json:"user"`
	Data struct {
		CustomID string `json:"custom_id"`
	} `json:"data"`
}

// ParseInteraction decodes a webhook body.
func ParseInteraction(body []byte) (*Interaction, error) {
	var in Interaction
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// ActorID returns the id of the user who clicked; guild interactions carry it on member.
func (in *Interaction) ActorID() string {
	if in.Member != nil && in.Member.User.ID != "" {
		return in.Member.User.ID
	}
	if in.User != nil {
		return in.User.ID
	}
	return ""
}

// Response is an interaction callback body.
type Response struct {
	Type int           `json:"type"`
	Data *responseData `json:"data,omitempty"`
}

type responseData struct {
	Content string `json:"content,omitempty"`
	Flags   int    `json:"flags,omitempty"`
}

// Pong acknowledges a ping.
func Pong() Response {
	return Response{Type: CallbackPong}
}

// Ephemeral replies with content only the actor can see.
func Ephemeral(content string) Response {
	return Response{Type: CallbackChannelReply, Data: &responseData{Content: content, Flags: flagEphemeral}}
}
