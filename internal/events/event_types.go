package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/gameserver"
	"github.com/spec-kit/staff-service/internal/notify"
)

// EventType enumerates the side-effect intents the core emits.
type EventType string

const (
	EventChannelMessage   EventType = "notify.channel"
	EventDirectMessage    EventType = "notify.direct"
	EventApprovalPrompt   EventType = "approval.prompt"
	EventPromptResolved   EventType = "approval.resolved"
	EventCapabilityChange EventType = "capability.change"
	EventGameCommand      EventType = "game.command"
)

// Types lists every intent type.
var Types = []EventType{
	EventChannelMessage,
	EventDirectMessage,
	EventApprovalPrompt,
	EventPromptResolved,
	EventCapabilityChange,
	EventGameCommand,
}

// Event is one intent in the outbox. Payload holds the JSON of the type-specific struct.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	SubjectID string          `json:"subject_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEvent wraps payload into an Event.
func NewEvent(eventType EventType, subjectID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// Decode unmarshals the event payload into out.
func (e Event) Decode(out any) error {
	return json.Unmarshal(e.Payload, out)
}

// Channel is a logical destination resolved to a Discord channel at delivery.
type Channel string

const (
	ChannelApplications Channel = "applications"
	ChannelStaffLog     Channel = "staff_log"
	ChannelReports      Channel = "reports"
	ChannelApprovals    Channel = "approvals"
)

// ChannelMessage payload.
type ChannelMessage struct {
	Channel Channel     `json:"channel"`
	Kind    notify.Kind `json:"kind"`
	Data    notify.Data `json:"data"`
}

// DirectMessage payload.
type DirectMessage struct {
	UserID string      `json:"user_id"`
	Kind   notify.Kind `json:"kind"`
	Data   notify.Data `json:"data"`
}

// ApprovalPrompt payload. The delivery posts the prompt and stores its message reference.
type ApprovalPrompt struct {
	RequestID string      `json:"request_id"`
	Kind      notify.Kind `json:"kind"`
	Data      notify.Data `json:"data"`
}

// PromptResolved payload. The delivery edits the stored prompt and removes its buttons.
type PromptResolved struct {
	RequestID string      `json:"request_id"`
	Data      notify.Data `json:"data"`
}

// CapabilityChange payload. With both Revoke and Grant set it is a swap.
type CapabilityChange struct {
	UserID string              `json:"user_id"`
	Revoke []domain.Capability `json:"revoke,omitempty"`
	Grant  *domain.Capability  `json:"grant,omitempty"`
}

// GameCommand payload.
type GameCommand struct {
	Command gameserver.Command `json:"command"`
}
