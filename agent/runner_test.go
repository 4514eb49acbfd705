package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/configstore"
	"github.com/hairizuan-noorazman/linkedin-agent/optimizer"
	"github.com/hairizuan-noorazman/linkedin-agent/pacing"
	"github.com/hairizuan-noorazman/linkedin-agent/runhistory"
	"github.com/hairizuan-noorazman/linkedin-agent/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTask struct {
	kind    runhistory.AgentType
	metrics runhistory.Metrics
	err     error

	env      *Env
	deadline bool
}

func (s *stubTask) Kind() runhistory.AgentType { return s.kind }

func (s *stubTask) Limiter(base pacing.LimiterConfig, cfg *configstore.Store) pacing.LimiterConfig {
	base.MinDelay = time.Second
	base.MaxDelay = time.Second
	return base
}

func (s *stubTask) Run(ctx context.Context, env *Env) (runhistory.Metrics, error) {
	s.env = env
	_, s.deadline = ctx.Deadline()
	return s.metrics, s.err
}

func newTestRunner(t *testing.T, h *harness, cfg Config) (*Runner, *runhistory.JSONStore, *optimizer.Optimizer) {
	t.Helper()
	history := runhistory.NewJSONStore(h.storage, "agent_history.json", h.log)
	opt := optimizer.New(h.config, history, h.log)
	r := NewRunner(cfg, h.config, opt, h.storage, nil, h.log, h.opts...)
	r.now = func() time.Time { return testNow }
	return r, history, opt
}

func TestRunner_RecordsMetrics(t *testing.T) {
	h := newHarness(t)
	r, history, _ := newTestRunner(t, h, Config{TimeLimit: time.Minute})
	task := &stubTask{
		kind:    runhistory.AgentInviteWithdrawal,
		metrics: &runhistory.WithdrawalMetrics{Withdrawn: 4},
	}

	res, err := r.Run(context.Background(), h.page, task)
	require.NoError(t, err)

	require.NotNil(t, res.Record)
	assert.Equal(t, runhistory.AgentInviteWithdrawal, res.Record.AgentType())
	assert.Equal(t, 4, res.Record.Metrics["withdrawn"])
	assert.Len(t, history.LoadHistory(context.Background()), 1)
	assert.True(t, task.deadline)
	require.NotNil(t, task.env)
	assert.NotNil(t, task.env.Limiter)
	assert.Equal(t, 0, h.page.Shots)
}

func TestRunner_FailureKeepsMetricsAndScreenshot(t *testing.T) {
	h := newHarness(t)
	r, history, _ := newTestRunner(t, h, Config{DebugDir: "debug"})
	boom := errors.New("selector vanished")
	task := &stubTask{
		kind:    runhistory.AgentNotification,
		metrics: &runhistory.NotificationMetrics{InvitesSent: 2, Errors: 1},
		err:     boom,
	}

	res, err := r.Run(context.Background(), h.page, task)
	assert.ErrorIs(t, err, boom)
	assert.False(t, task.deadline)

	require.Len(t, history.LoadHistory(context.Background()), 1)
	assert.Equal(t, 2, res.Record.Metrics["invites_sent"])
	assert.Equal(t, 1, h.page.Shots)

	exists, err := h.storage.Exists(context.Background(), "debug/notification_agent_20260314_093000.png")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, h.log.HasMessage("agent run failed"))
}

func TestRunner_PrunesOldScreenshots(t *testing.T) {
	h := newHarness(t)
	for _, p := range []string{
		"debug/notification_agent_20260301_080000.png",
		"debug/notification_agent_20260302_080000.png",
		"debug/invite_withdrawal_20260101_080000.png",
	} {
		testutil.WriteFixture(t, h.storage, p, "png")
	}

	r, _, _ := newTestRunner(t, h, Config{DebugDir: "debug", DebugKeep: 2})
	task := &stubTask{kind: runhistory.AgentNotification, err: errors.New("timeout")}

	_, err := r.Run(context.Background(), h.page, task)
	require.Error(t, err)

	remaining, err := h.storage.List(context.Background(), "debug")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"debug/invite_withdrawal_20260101_080000.png",
		"debug/notification_agent_20260302_080000.png",
		"debug/notification_agent_20260314_093000.png",
	}, remaining)
}

func TestRunner_NilMetricsStillRecorded(t *testing.T) {
	h := newHarness(t)
	r, _, _ := newTestRunner(t, h, Config{})
	task := &stubTask{kind: runhistory.AgentSearch, err: ErrLoginRequired}

	res, err := r.Run(context.Background(), h.page, task)
	assert.ErrorIs(t, err, ErrLoginRequired)
	require.NotNil(t, res.Record)
	assert.Equal(t, runhistory.AgentSearch, res.Record.AgentType())
}

func TestRunner_OptimizesBeforeRun(t *testing.T) {
	h := newHarness(t)
	r, _, opt := newTestRunner(t, h, Config{})
	for i := 0; i < 3; i++ {
		_, err := opt.LogRun(context.Background(), &runhistory.WithdrawalMetrics{DialogTimeoutCount: 1})
		require.NoError(t, err)
	}

	task := &stubTask{kind: runhistory.AgentInviteWithdrawal, metrics: &runhistory.WithdrawalMetrics{}}
	res, err := r.Run(context.Background(), h.page, task)
	require.NoError(t, err)

	require.Len(t, res.Adjustments, 1)
	assert.Equal(t, "invite_withdrawal.dialog_timeout_ms", res.Adjustments[0].Key)
	assert.Equal(t, 4000, task.env.Config.GetInt("invite_withdrawal.dialog_timeout_ms", 0))
}

func TestRunner_InvalidLimiter(t *testing.T) {
	h := newHarness(t)
	h.set(t, "rate_limiter.long_pause_every", 0)
	r, history, _ := newTestRunner(t, h, Config{})

	_, err := r.Run(context.Background(), h.page, &stubTask{kind: runhistory.AgentOutreach})
	assert.ErrorIs(t, err, pacing.ErrInvalidLimiter)
	assert.Empty(t, history.LoadHistory(context.Background()))
}

func TestRunner_OutreachUsesTunedSendWait(t *testing.T) {
	h := newHarness(t)
	r, _, opt := newTestRunner(t, h, Config{})
	for i := 0; i < 3; i++ {
		_, err := opt.LogRun(context.Background(), &runhistory.OutreachMetrics{ScrollSuccessRate: 1.0, MessageVerificationFailed: true})
		require.NoError(t, err)
	}
	h.page.Add(selConnCard, connectionCard("Jane Doe", "jane-doe", "Counsel"))
	newChat(h, map[string]string{"https://www.linkedin.com/in/jane-doe/": "Jane Doe"})

	res, err := r.Run(context.Background(), h.page, &OutreachTask{})
	require.NoError(t, err)

	var keys []string
	for _, adj := range res.Adjustments {
		keys = append(keys, adj.Key)
	}
	assert.Contains(t, keys, "timeouts.message_send_wait")
	assert.Equal(t, 4000, h.config.GetInt("timeouts.message_send_wait", 0))
	assert.Equal(t, 1, countSleeps(h.sleeper.Sleeps(), 4*time.Second))
	assert.Equal(t, 1, res.Record.Metrics["messages_sent"])
}
