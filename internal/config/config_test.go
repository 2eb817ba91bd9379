package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPConfig.Port)
	assert.Equal(t, "./discordin.db", cfg.DBConfig.Path)
	assert.Equal(t, 15, cfg.AppConfig.MinimumAge)
	assert.Equal(t, time.Hour, cfg.SessionTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.EventRetention())
	assert.False(t, cfg.IsProduction())
	assert.True(t, cfg.UsesDevSecret())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Origins())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_SECRET", "s3cr3t")
	t.Setenv("SESSION_TTL_MINUTES", "15")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPConfig.Port)
	assert.Equal(t, "s3cr3t", cfg.SessionConfig.Secret)
	assert.False(t, cfg.UsesDevSecret())
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins())
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestLoad_RejectsBadPruneSchedule(t *testing.T) {
	t.Setenv("EVENT_PRUNE_SCHEDULE", "every tuesday")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EVENT_PRUNE_SCHEDULE")
}
