package pacing

import (
	"math/rand"
	"sync"
	"time"
)

// Sleeper suspends the calling goroutine. Sleeps are never cut short; the
// caller checks for cancellation between actions.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) {
	time.Sleep(d)
}

// RealSleeper sleeps on the wall clock.
var RealSleeper Sleeper = realSleeper{}

// RecordingSleeper records requested durations without sleeping.
type RecordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *RecordingSleeper) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
}

// Sleeps returns the recorded durations in call order.
func (s *RecordingSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}

// Total returns the sum of recorded durations.
func (s *RecordingSleeper) Total() time.Duration {
	var total time.Duration
	for _, d := range s.Sleeps() {
		total += d
	}
	return total
}

type options struct {
	sleeper Sleeper
	rnd     *rand.Rand
}

// Option configures the pacing helpers.
type Option func(*options)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s Sleeper) Option {
	return func(o *options) {
		o.sleeper = s
	}
}

// WithRand fixes the random source, e.g. to a seeded one in tests.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rnd = r
	}
}

func buildOptions(opts []Option) options {
	o := options{sleeper: RealSleeper}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rnd == nil {
		o.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

// uniform draws a duration from [min, max].
func uniform(r *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(r.Float64()*float64(max-min))
}

// between draws an int from [min, max].
func between(r *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
