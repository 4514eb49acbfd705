package agent

import (
	"context"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/logger"
)

// RunFunc executes one task.
type RunFunc func(ctx context.Context, task Task) error

// Scheduler runs tasks one at a time. Tasks arrive through Trigger or, when
// an interval is set, from a ticker. Only one task can be queued; triggers
// while the slot is full are dropped.
type Scheduler struct {
	Work     chan Task
	run      RunFunc
	interval time.Duration
	periodic Task
	logger   logger.Logger
}

// NewScheduler creates a scheduler. With a positive interval, periodic is
// queued on every tick.
func NewScheduler(run RunFunc, interval time.Duration, periodic Task, log logger.Logger) *Scheduler {
	return &Scheduler{
		Work:     make(chan Task, 1),
		run:      run,
		interval: interval,
		periodic: periodic,
		logger:   log,
	}
}

// Trigger queues task and reports whether it was accepted.
func (s *Scheduler) Trigger(task Task) bool {
	select {
	case s.Work <- task:
		return true
	default:
		return false
	}
}

// Run processes tasks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info(ctx, "scheduler started", map[string]interface{}{
		"interval": s.interval.String(),
	})

	var tick <-chan time.Time
	if s.interval > 0 && s.periodic != nil {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case task := <-s.Work:
			s.execute(ctx, task)
		case <-tick:
			if !s.Trigger(s.periodic) {
				s.logger.Warn(ctx, "previous run still queued, skipping tick", nil)
			}
		case <-ctx.Done():
			s.logger.Info(ctx, "scheduler stopping", nil)
			return
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, task Task) {
	s.logger.Info(ctx, "scheduler running task", map[string]interface{}{
		"agent_type": string(task.Kind()),
	})
	if err := s.run(ctx, task); err != nil {
		s.logger.Error(ctx, "scheduled run failed", map[string]interface{}{
			"agent_type": string(task.Kind()),
			"error":      err.Error(),
		})
	}
}
