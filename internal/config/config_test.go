package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 3003, cfg.Port)
	require.Equal(t, "http://localhost:11434", cfg.OllamaBaseURL)
	require.Equal(t, 50, cfg.SessionMaxHistory)
	require.Equal(t, 30*time.Minute, cfg.SessionTimeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DEFAULT_MODEL", "qwen2.5-coder:14b")
	t.Setenv("LOG_REQUESTS", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "qwen2.5-coder:14b", cfg.DefaultModel)
	require.True(t, cfg.LogRequests)
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	cfg, err := Load("/nonexistent/path/gateway.yaml")
	require.NoError(t, err)
	require.Equal(t, Default().Port, cfg.Port)
}
