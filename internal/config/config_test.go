package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PROBATION_SWEEP_INTERVAL", "")
	t.Setenv("STRIKE_THRESHOLD", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, cfg.Lifecycle.ProbationDuration)
	assert.Equal(t, 3, cfg.Lifecycle.StrikeThreshold)
	assert.Equal(t, time.Hour, cfg.Lifecycle.SweepInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "session_token", cfg.Auth.CookieName)
	assert.Equal(t, "memory", cfg.Outbox.Driver)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PROBATION_SWEEP_INTERVAL", "15m")
	t.Setenv("DISCORD_SUPER_ADMIN_ROLE_IDS", "111, 222 ,")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_KEY_PREFIX", "panel")
	t.Setenv("POSTGRES_STATEMENT_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Lifecycle.SweepInterval)
	assert.Equal(t, []string{"111", "222"}, cfg.Discord.SuperAdminRoleIDs)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "panel", cfg.Redis.KeyPrefix)
	assert.Equal(t, 2*time.Second, cfg.Postgres.StatementTimeout)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")

	_, err := Load()
	assert.Error(t, err)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("PROBATION_DURATION", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, cfg.Lifecycle.ProbationDuration)
}
