package browser

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLauncher_Args(t *testing.T) {
	l := NewLauncher(LaunchConfig{UserDataDir: "/tmp/profile", Headless: true}, logger.NewTestLogger())

	args := l.Args()

	assert.Contains(t, args, "--remote-debugging-port=9222")
	assert.Contains(t, args, "--user-data-dir=/tmp/profile")
	assert.Contains(t, args, "--disable-blink-features=AutomationControlled")
	assert.Contains(t, args, "--headless=new")
}

func debugServer(t *testing.T) int {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"webSocketDebuggerUrl":"ws://127.0.0.1/devtools/browser/x"}`))
	}))
	t.Cleanup(srv.Close)

	_, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

func TestLauncher_EnsureRunningReusesBrowser(t *testing.T) {
	port := debugServer(t)
	l := NewLauncher(LaunchConfig{DebugPort: port}, logger.NewTestLogger())
	l.start = func(string, []string) error {
		t.Fatal("chrome should not be started")
		return nil
	}

	require.NoError(t, l.EnsureRunning(context.Background()))
}

func TestLauncher_EnsureRunningTimesOut(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	started := false
	l := NewLauncher(LaunchConfig{DebugPort: port, Path: "/usr/bin/true", ReadyWait: 600 * time.Millisecond}, logger.NewTestLogger())
	l.start = func(path string, args []string) error {
		started = true
		assert.Equal(t, "/usr/bin/true", path)
		return nil
	}

	err = l.EnsureRunning(context.Background())
	assert.True(t, started)
	assert.ErrorIs(t, err, ErrNotConnected)
}
