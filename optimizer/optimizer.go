package optimizer

import (
	"context"
	"fmt"
	"math"

	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/hairizuan-noorazman/linkedin-agent/runhistory"
)

// Config is the subset of the config store the optimizer reads and writes.
type Config interface {
	GetFloat(key string, def float64) float64
	Set(ctx context.Context, key string, value interface{}) error
}

// Direction of an adjustment.
type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

// Adjustment records one parameter change made by Optimize.
type Adjustment struct {
	Rule      string
	AgentType runhistory.AgentType
	Key       string
	Direction Direction
	Before    float64
	After     float64
	Signal    float64
	Runs      int
	Persisted bool
}

func (a Adjustment) String() string {
	return fmt.Sprintf("%s: %s %g -> %g (%s signal %.3f over %d runs)",
		a.AgentType, a.Key, a.Before, a.After, a.Direction, a.Signal, a.Runs)
}

// Optimizer turns recent run outcomes into config adjustments.
type Optimizer struct {
	config  Config
	history runhistory.Store
	rules   []Rule
	logger  logger.Logger
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithRules replaces the built-in rules.
func WithRules(rules ...Rule) Option {
	return func(o *Optimizer) {
		o.rules = rules
	}
}

// New creates an optimizer over the given config and history.
func New(cfg Config, history runhistory.Store, log logger.Logger, opts ...Option) *Optimizer {
	o := &Optimizer{
		config:  cfg,
		history: history,
		rules:   DefaultRules(),
		logger:  log.WithField("component", "optimizer"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// LogRun records a finished run's metrics.
func (o *Optimizer) LogRun(ctx context.Context, m runhistory.Metrics) (*runhistory.RunRecord, error) {
	return runhistory.LogMetrics(ctx, o.history, m)
}

// Optimize evaluates every rule once against the recent history and applies
// at most one adjustment per rule. Failures are logged and skip only the
// affected rule.
func (o *Optimizer) Optimize(ctx context.Context) []Adjustment {
	history := o.history.LoadHistory(ctx)
	groups := o.decode(ctx, runhistory.GroupByAgent(history))

	var adjustments []Adjustment
	for _, rule := range o.rules {
		adj, err := o.evaluate(ctx, o.resolve(rule), groups[rule.AgentType])
		if err != nil {
			o.logger.Error(ctx, "rule evaluation failed", map[string]interface{}{
				"rule":  rule.Name,
				"error": err.Error(),
			})
			continue
		}
		if adj != nil {
			adjustments = append(adjustments, *adj)
		}
	}

	o.logger.Info(ctx, "optimization complete", map[string]interface{}{
		"runs":        len(history),
		"adjustments": len(adjustments),
	})
	return adjustments
}

func (o *Optimizer) decode(ctx context.Context, groups map[runhistory.AgentType][]*runhistory.RunRecord) map[runhistory.AgentType][]runhistory.Metrics {
	out := make(map[runhistory.AgentType][]runhistory.Metrics, len(groups))
	for agentType, records := range groups {
		for _, r := range records {
			m, err := r.Typed()
			if err != nil {
				o.logger.Warn(ctx, "skipping run with unreadable metrics", map[string]interface{}{
					"run_id": r.ID.String(),
					"error":  err.Error(),
				})
				continue
			}
			out[agentType] = append(out[agentType], m)
		}
	}
	return out
}

// resolve applies threshold overrides stored under optimizer.rules.<name>.
func (o *Optimizer) resolve(r Rule) Rule {
	r = r.withDefaults()
	prefix := "optimizer.rules." + r.Name + "."
	r.Low = o.config.GetFloat(prefix+"low", r.Low)
	r.High = o.config.GetFloat(prefix+"high", r.High)
	r.IncreaseStep = o.config.GetFloat(prefix+"increase_step", r.IncreaseStep)
	r.DecreaseStep = o.config.GetFloat(prefix+"decrease_step", r.DecreaseStep)
	r.Floor = o.config.GetFloat(prefix+"floor", r.Floor)
	r.Ceiling = o.config.GetFloat(prefix+"ceiling", r.Ceiling)
	return r
}

func (o *Optimizer) evaluate(ctx context.Context, rule Rule, runs []runhistory.Metrics) (adj *Adjustment, err error) {
	defer func() {
		if r := recover(); r != nil {
			adj = nil
			err = fmt.Errorf("panic in rule %s: %v", rule.Name, r)
		}
	}()

	if len(runs) > rule.Window {
		runs = runs[len(runs)-rule.Window:]
	}

	var values []float64
	for _, m := range runs {
		if v, ok := rule.Extract(m); ok {
			values = append(values, v)
		}
	}
	if len(values) < rule.MinRuns {
		return nil, nil
	}

	signal := aggregate(rule.Signal, values)
	current := o.config.GetFloat(rule.Key, rule.Default)
	full := len(values) >= rule.FullWindow

	var (
		next      float64
		direction Direction
	)
	switch {
	case regressed(rule, signal):
		next = math.Min(current+rule.IncreaseStep, rule.Ceiling)
		direction = Increase
		if next <= current {
			return nil, nil
		}
	case rule.CanDecrease && full && succeeded(rule, signal):
		next = math.Max(current-rule.DecreaseStep, rule.Floor)
		direction = Decrease
		if next >= current {
			return nil, nil
		}
	default:
		return nil, nil
	}

	adj = &Adjustment{
		Rule:      rule.Name,
		AgentType: rule.AgentType,
		Key:       rule.Key,
		Direction: direction,
		Before:    current,
		After:     next,
		Signal:    signal,
		Runs:      len(values),
	}

	o.logger.Info(ctx, "[OPTIMIZER] "+adj.String(), map[string]interface{}{
		"rule":        rule.Name,
		"agent_type":  string(rule.AgentType),
		"key":         rule.Key,
		"before":      current,
		"after":       next,
		"signal":      signal,
		"signal_type": rule.Signal.String(),
		"runs":        len(values),
	})

	if err := o.config.Set(ctx, rule.Key, storedValue(next)); err != nil {
		o.logger.Error(ctx, "failed to persist adjustment", map[string]interface{}{
			"key":   rule.Key,
			"error": err.Error(),
		})
		return adj, nil
	}
	adj.Persisted = true
	return adj, nil
}

func aggregate(s Signal, values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	if s == SignalRate {
		return sum / float64(len(values))
	}
	return sum
}

func regressed(r Rule, signal float64) bool {
	if r.Signal == SignalRate {
		return signal < r.Low
	}
	return signal >= r.High
}

func succeeded(r Rule, signal float64) bool {
	if r.Signal == SignalRate {
		return signal > r.High
	}
	return signal == 0
}

// storedValue keeps whole numbers as ints so the config file stays readable.
func storedValue(v float64) interface{} {
	if v == math.Trunc(v) {
		return int(v)
	}
	return v
}
