package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-service/internal/domain"
)

func TestEveryKindRendersWithEmptyData(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			msg, err := Build(kind, Data{})
			require.NoError(t, err)
			assert.NotEmpty(t, msg.Title)
			assert.NotZero(t, msg.Color)
		})
	}
}

func TestUnknownKind(t *testing.T) {
	_, err := Build("nope", Data{})
	assert.Error(t, err)
}

func TestApplicationResult(t *testing.T) {
	msg, err := Build(KindApplicationResult, Data{TargetID: "42", TypeName: "Staff", Status: "approved", TeamName: "Alpha"})
	require.NoError(t, err)
	assert.Equal(t, "Application Approved", msg.Title)
	assert.Equal(t, "<@42>'s **Staff** application was approved and assigned to **Alpha**.", msg.Body)
	assert.Equal(t, ColorSuccess, msg.Color)

	msg, err = Build(KindApplicationResult, Data{TargetID: "42", TypeName: "Staff", Status: "rejected"})
	require.NoError(t, err)
	assert.Equal(t, ColorDanger, msg.Color)
	assert.NotContains(t, msg.Body, "assigned")
}

func TestFiredListsStrikeHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, err := Build(KindFired, Data{Strikes: []domain.Note{
		{Kind: domain.NoteKindStrike, Text: "late1", CreatedAt: at},
		{Kind: domain.NoteKindStrike, Text: "late2", CreatedAt: at},
	}})
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "1. late1 (2026-03-01 10:00 UTC)")
	assert.Contains(t, msg.Body, "2. late2")
}

func TestStrikeAddedFields(t *testing.T) {
	msg, err := Build(KindStrikeAdded, Data{ActorID: "1", StrikeCount: 2, Threshold: 3, Reason: "late"})
	require.NoError(t, err)
	assert.Equal(t, "Strike 2/3", msg.Title)
	require.Len(t, msg.Fields, 1)
	assert.Equal(t, "late", msg.Fields[0].Value)
}

func TestPunishmentPromptMentionsDuration(t *testing.T) {
	msg, err := Build(KindPunishmentPrompt, Data{
		ActorID:        "1",
		ReportedPlayer: "griefer",
		Punishment:     &domain.Punishment{Type: domain.PunishmentBan, DurationHours: 24},
	})
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "**ban** for **griefer** (24h)")
}
