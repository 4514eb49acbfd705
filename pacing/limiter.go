package pacing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrInvalidLimiter is returned for inconsistent limiter bounds.
	ErrInvalidLimiter = errors.New("invalid rate limiter config")
)

// LimiterConfig holds the RateLimiter bounds.
type LimiterConfig struct {
	MinDelay time.Duration
	MaxDelay time.Duration

	// LongPauseEvery must be at least 1.
	LongPauseEvery int
	LongPauseMin   time.Duration
	LongPauseMax   time.Duration

	// MaxPerMinute caps the action rate regardless of drawn delays. Zero
	// disables the cap.
	MaxPerMinute int
}

// DefaultLimiterConfig returns 5-15s between actions and a 20-40s break
// every third action.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		MinDelay:       5 * time.Second,
		MaxDelay:       15 * time.Second,
		LongPauseEvery: 3,
		LongPauseMin:   20 * time.Second,
		LongPauseMax:   40 * time.Second,
	}
}

// Reader is the config lookup the limiter is built from.
type Reader interface {
	GetFloat(key string, def float64) float64
	GetInt(key string, def int) int
}

// LimiterConfigFrom reads rate_limiter.* (seconds) and
// limits.max_actions_per_minute.
func LimiterConfigFrom(cfg Reader) LimiterConfig {
	d := DefaultLimiterConfig()
	return LimiterConfig{
		MinDelay:       seconds(cfg.GetFloat("rate_limiter.min_delay", d.MinDelay.Seconds())),
		MaxDelay:       seconds(cfg.GetFloat("rate_limiter.max_delay", d.MaxDelay.Seconds())),
		LongPauseEvery: cfg.GetInt("rate_limiter.long_pause_every", d.LongPauseEvery),
		LongPauseMin:   seconds(cfg.GetFloat("rate_limiter.long_pause_min", d.LongPauseMin.Seconds())),
		LongPauseMax:   seconds(cfg.GetFloat("rate_limiter.long_pause_max", d.LongPauseMax.Seconds())),
		MaxPerMinute:   cfg.GetInt("limits.max_actions_per_minute", 0),
	}
}

// Validate checks the bounds are consistent.
func (c LimiterConfig) Validate() error {
	switch {
	case c.MinDelay < 0:
		return fmt.Errorf("%w: negative min delay", ErrInvalidLimiter)
	case c.MaxDelay < c.MinDelay:
		return fmt.Errorf("%w: max delay %s below min delay %s", ErrInvalidLimiter, c.MaxDelay, c.MinDelay)
	case c.LongPauseEvery < 1:
		return fmt.Errorf("%w: long pause interval %d below 1", ErrInvalidLimiter, c.LongPauseEvery)
	case c.LongPauseMin < 0 || c.LongPauseMax < c.LongPauseMin:
		return fmt.Errorf("%w: long pause range %s-%s", ErrInvalidLimiter, c.LongPauseMin, c.LongPauseMax)
	case c.MaxPerMinute < 0:
		return fmt.Errorf("%w: negative max actions per minute", ErrInvalidLimiter)
	}
	return nil
}

// RateLimiter spaces out actions with a random short pause before each one
// and a longer break after every LongPauseEvery actions.
type RateLimiter struct {
	mu      sync.Mutex
	config  LimiterConfig
	actions int
	ceiling *rate.Limiter
	sleeper Sleeper
	rnd     *rand.Rand
}

// NewRateLimiter validates cfg and builds a limiter.
func NewRateLimiter(cfg LimiterConfig, opts ...Option) (*RateLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	r := &RateLimiter{
		config:  cfg,
		sleeper: o.sleeper,
		rnd:     o.rnd,
	}
	if cfg.MaxPerMinute > 0 {
		r.ceiling = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.MaxPerMinute)), 1)
	}
	return r, nil
}

// Wait counts an action and sleeps before it. logFn, if given, receives a
// line for every pause. Only a context that is already done stops Wait; a
// started pause always runs to completion.
func (r *RateLimiter) Wait(ctx context.Context, logFn func(string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.actions++
	n := r.actions
	pause := uniform(r.rnd, r.config.MinDelay, r.config.MaxDelay)
	var long time.Duration
	if n%r.config.LongPauseEvery == 0 {
		long = uniform(r.rnd, r.config.LongPauseMin, r.config.LongPauseMax)
	}
	r.mu.Unlock()

	if r.ceiling != nil {
		if d := r.ceiling.Reserve().Delay(); d > pause {
			pause = d
		}
	}

	if logFn != nil {
		logFn(fmt.Sprintf("  [Pause %.1fs...]", pause.Seconds()))
	}
	r.sleeper.Sleep(pause)

	if long > 0 {
		if logFn != nil {
			logFn(fmt.Sprintf("  [Extended break %.0fs...]", long.Seconds()))
		}
		r.sleeper.Sleep(long)
	}
	return nil
}

// Reset zeroes the action counter for a new phase of a run.
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = 0
}

// Actions returns how many waits have been counted since the last reset.
func (r *RateLimiter) Actions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.actions
}
