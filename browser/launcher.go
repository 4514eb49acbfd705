package browser

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/logger"
)

// DefaultDebugPort is the DevTools port Chrome is started with.
const DefaultDebugPort = 9222

var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// LaunchConfig describes how to start Chrome with remote debugging.
type LaunchConfig struct {
	Path        string
	DebugPort   int
	UserDataDir string
	Headless    bool
	ReadyWait   time.Duration
}

// Launcher starts a persistent Chrome with remote debugging enabled, or
// reuses one that is already listening.
type Launcher struct {
	config LaunchConfig
	client *http.Client
	logger logger.Logger

	start func(path string, args []string) error
}

// NewLauncher creates a Launcher, filling unset fields with defaults.
func NewLauncher(cfg LaunchConfig, log logger.Logger) *Launcher {
	if cfg.DebugPort == 0 {
		cfg.DebugPort = DefaultDebugPort
	}
	if cfg.ReadyWait == 0 {
		cfg.ReadyWait = 15 * time.Second
	}
	return &Launcher{
		config: cfg,
		client: &http.Client{Timeout: 2 * time.Second},
		logger: log.WithField("component", "launcher"),
		start:  startDetached,
	}
}

// Args returns the Chrome command line flags.
func (l *Launcher) Args() []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", l.config.DebugPort),
		"--disable-features=TranslateUI",
		"--disable-blink-features=AutomationControlled",
		"--no-first-run",
		"--no-default-browser-check",
	}
	if l.config.UserDataDir != "" {
		args = append(args, "--user-data-dir="+l.config.UserDataDir)
	}
	if l.config.Headless {
		args = append(args, "--headless=new")
	}
	return args
}

// Running reports whether something answers on the debug port.
func (l *Launcher) Running(ctx context.Context) bool {
	url := fmt.Sprintf("http://127.0.0.1:%d/json/version", l.config.DebugPort)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// EnsureRunning starts Chrome unless it is already listening, then waits
// until the debug port answers.
func (l *Launcher) EnsureRunning(ctx context.Context) error {
	if l.Running(ctx) {
		l.logger.Info(ctx, "chrome already running", map[string]interface{}{
			"port": l.config.DebugPort,
		})
		return nil
	}

	path, err := l.resolvePath()
	if err != nil {
		return err
	}

	l.logger.Info(ctx, "starting chrome", map[string]interface{}{
		"path": path,
		"port": l.config.DebugPort,
	})
	if err := l.start(path, l.Args()); err != nil {
		return fmt.Errorf("failed to start chrome: %w", err)
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(l.config.ReadyWait)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w: port %d did not open within %s", ErrNotConnected, l.config.DebugPort, l.config.ReadyWait)
		case <-ticker.C:
			if l.Running(ctx) {
				return nil
			}
		}
	}
}

func (l *Launcher) resolvePath() (string, error) {
	if l.config.Path != "" {
		return l.config.Path, nil
	}
	for _, candidate := range chromeCandidates {
		if p, err := exec.LookPath(candidate); err == nil {
			return p, nil
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("chrome executable not found; set chrome.path")
}

func startDetached(path string, args []string) error {
	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
