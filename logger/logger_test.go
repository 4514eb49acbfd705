package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestLogger_ChildSharesEntries(t *testing.T) {
	log := NewTestLogger()
	child := log.WithField("component", "optimizer")

	child.Info(context.Background(), "adjusted", map[string]interface{}{"key": "timeouts.scroll_wait"})
	log.Warn(context.Background(), "plain", nil)

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "optimizer", entries[0].Fields["component"])
	assert.Equal(t, "timeouts.scroll_wait", entries[0].Fields["key"])
	assert.NotContains(t, entries[1].Fields, "component")
	assert.True(t, log.HasMessage("adjusted"))

	log.Reset()
	assert.Empty(t, log.Entries())
}

func TestNewFileLogger_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "notification_agent.log")

	log, err := NewFileLogger("debug", path)
	require.NoError(t, err)
	log.WithField("agent", "notification_agent").Info(context.Background(), "run started", nil)
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"run started"`)
	assert.Contains(t, string(data), `"agent":"notification_agent"`)
}

func TestNewLogrusLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	log := NewLogrusLogger("not-a-level")
	assert.Equal(t, "info", log.logger.GetLevel().String())
}
