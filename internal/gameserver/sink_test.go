package gameserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/domain"
)

func TestCommandLine(t *testing.T) {
	assert.Equal(t, `ban griefer 24 "rdm"`, Command{Action: domain.PunishmentBan, Player: "griefer", DurationHours: 24, Reason: "rdm"}.Line())
	assert.Equal(t, `warn griefer`, Command{Action: domain.PunishmentWarn, Player: "griefer", DurationHours: 5}.Line())
}

func TestHTTPSinkPostsCommand(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewHTTPSink(config.GameServerConfig{CommandURL: srv.URL, Token: "secret"})
	require.NoError(t, sink.Execute(context.Background(), Command{Action: domain.PunishmentWarn, Player: "p1"}))
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "warn p1", got["command"])
}

func TestHTTPSinkFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewHTTPSink(config.GameServerConfig{CommandURL: srv.URL})
	assert.Error(t, sink.Execute(context.Background(), Command{Action: domain.PunishmentBan, Player: "p1"}))
}
