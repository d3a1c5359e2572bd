package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "")
	t.Setenv("PUSH_INTERVAL", "")
	t.Setenv("TENANT_UUID", "")

	cfg := Load()
	assert.Equal(t, "pos.db", cfg.LocalDBPath)
	assert.Equal(t, 5*time.Minute, cfg.PushInterval)
	assert.Equal(t, 30*time.Second, cfg.PushInitialDelay)
	assert.Equal(t, uuid.Nil, cfg.TenantUUID)
	assert.Error(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	tenant := uuid.New()
	t.Setenv("REMOTE_BASE_URL", "https://example.test/rest/v1/")
	t.Setenv("REMOTE_API_KEY", "k")
	t.Setenv("PUSH_INTERVAL", "90s")
	t.Setenv("DB_DEBUG", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TENANT_UUID", tenant.String())

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://example.test/rest/v1", cfg.RemoteBaseURL)
	assert.Equal(t, 90*time.Second, cfg.PushInterval)
	assert.True(t, cfg.DBDebug)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, tenant, cfg.TenantUUID)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PUSH_INTERVAL", "soon")
	t.Setenv("DB_DEBUG", "maybe")
	t.Setenv("TENANT_UUID", "not-a-uuid")

	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.PushInterval)
	assert.False(t, cfg.DBDebug)
	assert.Equal(t, uuid.Nil, cfg.TenantUUID)
}
