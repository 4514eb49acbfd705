package optimizer

import (
	"github.com/hairizuan-noorazman/linkedin-agent/runhistory"
)

// Signal selects how per-run values are aggregated over the window.
type Signal int

const (
	// SignalRate averages a per-run value in [0,1]. Below Low is a
	// regression, above High over a full window is sustained success.
	SignalRate Signal = iota

	// SignalCount sums a per-run count. Reaching High is a regression, zero
	// over a full window is sustained success.
	SignalCount
)

func (s Signal) String() string {
	switch s {
	case SignalRate:
		return "rate"
	case SignalCount:
		return "count"
	}
	return "unknown"
}

// Extractor pulls a rule's per-run value out of typed metrics. ok is false
// when the metrics are not of the shape the rule expects.
type Extractor func(m runhistory.Metrics) (value float64, ok bool)

// Rule tunes one config key from one agent type's recent runs.
type Rule struct {
	Name      string
	AgentType runhistory.AgentType
	Key       string
	Default   float64
	Signal    Signal
	Extract   Extractor

	Low          float64
	High         float64
	IncreaseStep float64
	DecreaseStep float64
	Floor        float64
	Ceiling      float64

	// Window is how many recent runs are aggregated; MinRuns is the least
	// that allows any decision and FullWindow the least that allows a
	// decrease.
	Window     int
	MinRuns    int
	FullWindow int

	CanDecrease bool
}

const (
	defaultWindow     = 5
	defaultMinRuns    = 3
	defaultFullWindow = 5
)

// DefaultRules returns the built-in tuning rules.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:         "scroll_wait",
			AgentType:    runhistory.AgentOutreach,
			Key:          "timeouts.scroll_wait",
			Default:      3000,
			Signal:       SignalRate,
			Extract:      outreach(func(m *runhistory.OutreachMetrics) float64 { return m.ScrollSuccessRate }),
			Low:          0.6,
			High:         0.9,
			IncreaseStep: 1000,
			DecreaseStep: 500,
			Floor:        2000,
			Ceiling:      10000,
			CanDecrease:  true,
		},
		{
			Name:         "message_send_wait",
			AgentType:    runhistory.AgentOutreach,
			Key:          "timeouts.message_send_wait",
			Default:      3000,
			Signal:       SignalCount,
			Extract:      outreach(func(m *runhistory.OutreachMetrics) float64 { return flag(m.MessageVerificationFailed) }),
			High:         1,
			IncreaseStep: 1000,
			DecreaseStep: 500,
			Floor:        2000,
			Ceiling:      10000,
			CanDecrease:  true,
		},
		{
			Name:         "chat_open_retries",
			AgentType:    runhistory.AgentOutreach,
			Key:          "limits.chat_open_retries",
			Default:      3,
			Signal:       SignalCount,
			Extract:      outreach(func(m *runhistory.OutreachMetrics) float64 { return flag(m.ChatOpenFailed) }),
			High:         2,
			IncreaseStep: 1,
			Floor:        3,
			Ceiling:      6,
		},
		{
			Name:         "identity_poll_retries",
			AgentType:    runhistory.AgentOutreach,
			Key:          "timeouts.identity_poll_retries",
			Default:      15,
			Signal:       SignalCount,
			Extract:      outreach(func(m *runhistory.OutreachMetrics) float64 { return flag(m.IdentityVerificationFailed) }),
			High:         2,
			IncreaseStep: 5,
			Floor:        15,
			Ceiling:      30,
		},
		{
			Name:         "file_upload_wait",
			AgentType:    runhistory.AgentOutreach,
			Key:          "timeouts.file_upload_wait_ms",
			Default:      5000,
			Signal:       SignalCount,
			Extract:      outreach(func(m *runhistory.OutreachMetrics) float64 { return flag(m.FileUploadFailed) }),
			High:         1,
			IncreaseStep: 2000,
			Floor:        5000,
			Ceiling:      15000,
		},
		{
			Name:         "max_retries",
			AgentType:    runhistory.AgentOutreach,
			Key:          "limits.max_retries",
			Default:      2,
			Signal:       SignalCount,
			Extract:      outreach(func(m *runhistory.OutreachMetrics) float64 { return float64(m.Errors) }),
			High:         3,
			IncreaseStep: 1,
			DecreaseStep: 1,
			Floor:        1,
			Ceiling:      5,
			CanDecrease:  true,
		},
		{
			Name:      "dialog_timeout",
			AgentType: runhistory.AgentInviteWithdrawal,
			Key:       "invite_withdrawal.dialog_timeout_ms",
			Default:   3000,
			Signal:    SignalCount,
			Extract: func(m runhistory.Metrics) (float64, bool) {
				w, ok := m.(*runhistory.WithdrawalMetrics)
				if !ok {
					return 0, false
				}
				return float64(w.DialogTimeoutCount), true
			},
			High:         2,
			IncreaseStep: 1000,
			DecreaseStep: 500,
			Floor:        2000,
			Ceiling:      8000,
			CanDecrease:  true,
		},
		{
			Name:      "delay_between_invites",
			AgentType: runhistory.AgentNotification,
			Key:       "notification_agent.delay_between_invites",
			Default:   5,
			Signal:    SignalCount,
			Extract: func(m runhistory.Metrics) (float64, bool) {
				n, ok := m.(*runhistory.NotificationMetrics)
				if !ok {
					return 0, false
				}
				return float64(n.Errors), true
			},
			High:         3,
			IncreaseStep: 2,
			DecreaseStep: 1,
			Floor:        3,
			Ceiling:      15,
			CanDecrease:  true,
		},
	}
}

func outreach(fn func(m *runhistory.OutreachMetrics) float64) Extractor {
	return func(m runhistory.Metrics) (float64, bool) {
		o, ok := m.(*runhistory.OutreachMetrics)
		if !ok {
			return 0, false
		}
		return fn(o), true
	}
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (r Rule) withDefaults() Rule {
	if r.Window <= 0 {
		r.Window = defaultWindow
	}
	if r.MinRuns <= 0 {
		r.MinRuns = defaultMinRuns
	}
	if r.FullWindow <= 0 {
		r.FullWindow = defaultFullWindow
	}
	return r
}
