package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/browser"
	"github.com/hairizuan-noorazman/linkedin-agent/classifier"
	"github.com/hairizuan-noorazman/linkedin-agent/configstore"
	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/hairizuan-noorazman/linkedin-agent/pacing"
	"github.com/hairizuan-noorazman/linkedin-agent/runhistory"
	"github.com/hairizuan-noorazman/linkedin-agent/storage"
)

var (
	// ErrLoginRequired is returned when the session is logged out and no
	// login happened within the wait.
	ErrLoginRequired = errors.New("linkedin login required")

	// ErrWeeklyLimit is returned when LinkedIn reports the weekly
	// invitation limit.
	ErrWeeklyLimit = errors.New("weekly invitation limit reached")

	// ErrUnknownTask is returned for task names with no implementation.
	ErrUnknownTask = errors.New("unknown task")
)

// Task is one agent workflow. Run returns the metrics gathered so far even
// when it fails.
type Task interface {
	Kind() runhistory.AgentType

	// Limiter adapts the base pacing to the task.
	Limiter(base pacing.LimiterConfig, cfg *configstore.Store) pacing.LimiterConfig

	Run(ctx context.Context, env *Env) (runhistory.Metrics, error)
}

// TaskByName resolves a CLI task name.
func TaskByName(name string) (Task, error) {
	switch name {
	case "outreach", string(runhistory.AgentOutreach):
		return &OutreachTask{}, nil
	case "notification", string(runhistory.AgentNotification):
		return &NotificationTask{}, nil
	case "withdraw", "withdrawal", string(runhistory.AgentInviteWithdrawal):
		return &WithdrawalTask{}, nil
	}
	return nil, ErrUnknownTask
}

// Env is what a task runs against.
type Env struct {
	Page       browser.Page
	Human      *pacing.Humanizer
	Limiter    *pacing.RateLimiter
	Config     *configstore.Store
	Storage    storage.BlobStorage
	Classifier classifier.Classifier
	Logger     logger.Logger
	Settings   Config

	now    func() time.Time
	pacing []pacing.Option
}

// Now returns the current time.
func (e *Env) Now() time.Time {
	if e.now == nil {
		return time.Now()
	}
	return e.now()
}

// Selector reads a single selector from selectors.<name>.
func (e *Env) Selector(name string) string {
	return e.Config.GetString("selectors."+name, "")
}

// Selectors reads a selector list from selectors.<name>.
func (e *Env) Selectors(name string) []string {
	return e.Config.GetStringSlice("selectors."+name, nil)
}

// Retry runs fn with the configured retry budget.
func (e *Env) Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := e.Config.GetInt("limits.max_retries", 2) + 1
	return pacing.Retry(ctx, attempts, time.Second, fn, e.pacing...)
}

// Progress receives the limiter's pause lines.
func (e *Env) Progress(line string) {
	e.Logger.Info(context.Background(), strings.TrimSpace(line), nil)
}

// AwaitLogin waits for a logged-out session to be logged in by hand.
func (e *Env) AwaitLogin(ctx context.Context) error {
	limit := e.Config.GetSeconds("timeouts.login_wait_s", 300)
	polls := int(limit / (5 * time.Second))

	for i := 0; ; i++ {
		url, err := e.Page.URL(ctx)
		if err != nil {
			return err
		}
		if !strings.Contains(url, "login") && !strings.Contains(url, "authwall") {
			if i > 0 {
				e.Logger.Info(ctx, "login detected", nil)
			}
			return nil
		}
		if i == 0 {
			e.Logger.Warn(ctx, "login required, waiting for manual login", map[string]interface{}{
				"wait": limit.String(),
			})
		}
		if i >= polls {
			return ErrLoginRequired
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		e.Human.Delay(5*time.Second, 5*time.Second)
	}
}

// dismiss closes an open modal if there is one. Failures are logged and
// otherwise ignored.
func (e *Env) dismiss(ctx context.Context) {
	el, found, err := e.Page.Query(ctx, e.Selector("dismiss_button"))
	if err != nil {
		e.Logger.Warn(ctx, "failed to look up dismiss button", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if !found {
		return
	}
	if err := el.Click(ctx); err != nil {
		e.Logger.Warn(ctx, "failed to dismiss dialog", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
