package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "config.json", cfg.Paths.Config)
	assert.Equal(t, "agent_history.json", cfg.Paths.History)
	assert.Equal(t, "json", cfg.History.Backend)
	assert.Equal(t, 9222, cfg.Chrome.DebugPort)
	assert.Equal(t, 2*time.Hour, cfg.Agent.TimeLimit)
	assert.Equal(t, 8080, cfg.Review.Port)
	assert.False(t, cfg.LLM.Enabled)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkedin-agent.yaml")
	content := `
storage:
  type: local
  base_dir: /var/lib/linkedin-agent
history:
  backend: sqlite
chrome:
  debug_port: 9333
agent:
  time_limit: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("LINKEDIN_AGENT_REVIEW_PORT", "9090")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/linkedin-agent", cfg.Storage.BaseDir)
	assert.Equal(t, "sqlite", cfg.History.Backend)
	assert.Equal(t, 9333, cfg.Chrome.DebugPort)
	assert.Equal(t, 30*time.Minute, cfg.Agent.TimeLimit)
	assert.Equal(t, 9090, cfg.Review.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want interface{}
	}{
		{raw: "5", want: float64(5)},
		{raw: "2.5", want: 2.5},
		{raw: "true", want: true},
		{raw: `["a","b"]`, want: []interface{}{"a", "b"}},
		{raw: `"quoted"`, want: "quoted"},
		{raw: "div.nt-card", want: "div.nt-card"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.raw))
		})
	}
}
