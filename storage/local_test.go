package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	tests := []struct {
		name      string
		baseDir   string
		wantError bool
	}{
		{name: "existing directory", baseDir: t.TempDir()},
		{name: "creates missing directory", baseDir: filepath.Join(t.TempDir(), "state")},
		{name: "empty base directory", baseDir: "", wantError: true},
		{name: "dot as base directory", baseDir: ".", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewLocalStorage(tt.baseDir)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestLocalStorage_UploadReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	baseDir := t.TempDir()
	s, err := NewLocalStorage(baseDir)
	require.NoError(t, err)

	require.NoError(t, WriteAll(ctx, s, "config.json", []byte(`{"timeouts":{"scroll_wait":3000}}`)))
	require.NoError(t, WriteAll(ctx, s, "config.json", []byte(`{"timeouts":{"scroll_wait":2500}}`)))

	data, err := ReadAll(ctx, s, "config.json")
	require.NoError(t, err)
	assert.Equal(t, `{"timeouts":{"scroll_wait":2500}}`, string(data))

	entries, err := os.ReadDir(baseDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}
}

func TestLocalStorage_UploadNested(t *testing.T) {
	ctx := context.Background()
	baseDir := t.TempDir()
	s, err := NewLocalStorage(baseDir)
	require.NoError(t, err)

	require.NoError(t, s.Upload(ctx, "debug/withdrawal/failure.png", strings.NewReader("png")))

	content, err := os.ReadFile(filepath.Join(baseDir, "debug", "withdrawal", "failure.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(content))
}

func TestLocalStorage_Download(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	t.Run("missing document", func(t *testing.T) {
		_, err := s.Download(ctx, "agent_history.json")
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := s.Download(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidPath)
	})
}

func TestLocalStorage_DeleteAndExists(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, WriteAll(ctx, s, "agent_history.json", []byte("[]")))

	exists, err := s.Exists(ctx, "agent_history.json")
	require.NoError(t, err)
	assert.True(t, exists)

	url, err := s.GetURL(ctx, "agent_history.json")
	require.NoError(t, err)
	assert.Contains(t, url, "agent_history.json")

	require.NoError(t, s.Delete(ctx, "agent_history.json"))
	exists, err = s.Exists(ctx, "agent_history.json")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, s.Delete(ctx, "agent_history.json"), ErrFileNotFound)
	_, err = s.GetURL(ctx, "agent_history.json")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalStorage_PathTraversalPrevention(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, path := range []string{
		"../../../etc/passwd",
		"../../outside.txt",
		"subdir/../../outside.txt",
	} {
		t.Run("block_"+path, func(t *testing.T) {
			err := s.Upload(ctx, path, strings.NewReader("x"))
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

func TestLocalStorage_List(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{
		"config.json",
		"debug/withdrawal_20260314_093000.png",
		"debug/notification_20260313_080000.png",
		"debug/nested/extra.png",
	} {
		require.NoError(t, WriteAll(ctx, s, p, []byte("x")))
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.baseDir, "debug", "partial.png.123.tmp"), []byte("x"), 0644))

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{
			name:   "prefix directory",
			prefix: "debug",
			want: []string{
				"debug/nested/extra.png",
				"debug/notification_20260313_080000.png",
				"debug/withdrawal_20260314_093000.png",
			},
		},
		{
			name:   "everything",
			prefix: "",
			want: []string{
				"config.json",
				"debug/nested/extra.png",
				"debug/notification_20260313_080000.png",
				"debug/withdrawal_20260314_093000.png",
			},
		},
		{name: "missing prefix", prefix: "screenshots", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = s.List(ctx, "../outside")
	assert.ErrorIs(t, err, ErrInvalidPath)
}
