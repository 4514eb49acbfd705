package pacing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/browser"
)

// Viewports are common desktop resolutions picked from at session start.
var Viewports = []browser.Size{
	{Width: 1920, Height: 1080},
	{Width: 1536, Height: 864},
	{Width: 1440, Height: 900},
	{Width: 1366, Height: 768},
	{Width: 1280, Height: 720},
}

// RandomViewport picks one of Viewports.
func RandomViewport(r *rand.Rand) browser.Size {
	return Viewports[r.Intn(len(Viewports))]
}

// Humanizer wraps page interactions in randomized, human-looking timing.
type Humanizer struct {
	page    browser.Page
	sleeper Sleeper
	rnd     *rand.Rand
}

// NewHumanizer creates a Humanizer for page.
func NewHumanizer(page browser.Page, opts ...Option) *Humanizer {
	o := buildOptions(opts)
	return &Humanizer{
		page:    page,
		sleeper: o.sleeper,
		rnd:     o.rnd,
	}
}

// Page returns the wrapped page.
func (h *Humanizer) Page() browser.Page {
	return h.page
}

// Delay sleeps for a uniform random duration in [min, max].
func (h *Humanizer) Delay(min, max time.Duration) {
	h.sleeper.Sleep(uniform(h.rnd, min, max))
}

// Think sleeps 1.5-4s, the default pause between unrelated actions.
func (h *Humanizer) Think() {
	h.Delay(1500*time.Millisecond, 4*time.Second)
}

// Scroll scrolls down by roughly distance pixels in small wheel ticks. A
// distance of zero or less picks 200-500px.
func (h *Humanizer) Scroll(ctx context.Context, distance int) error {
	if distance <= 0 {
		distance = between(h.rnd, 200, 500)
	}
	tick := between(h.rnd, 80, 140)
	ticks := distance / tick
	if ticks < 1 {
		ticks = 1
	}

	size, err := h.page.Viewport(ctx)
	if err != nil {
		return err
	}
	at := browser.Point{
		X: float64(size.Width/2 + between(h.rnd, -100, 100)),
		Y: float64(size.Height/2 + between(h.rnd, -50, 50)),
	}
	if err := h.page.MouseMove(ctx, at, 1); err != nil {
		return err
	}
	h.Delay(100*time.Millisecond, 300*time.Millisecond)

	for i := 0; i < ticks; i++ {
		delta := float64(tick + between(h.rnd, -20, 30))
		if err := h.page.Wheel(ctx, at, delta); err != nil {
			return err
		}
		if i < ticks-1 {
			h.Delay(50*time.Millisecond, 200*time.Millisecond)
		}
	}
	return nil
}

// MouseMove moves the pointer along a multi-step path to a random point
// inside target, or to a random point in the viewport when target is nil or
// not rendered.
func (h *Humanizer) MouseMove(ctx context.Context, target browser.Element) error {
	var (
		to    browser.Point
		steps int
		aimed bool
	)
	if target != nil {
		if box, err := target.BoundingBox(ctx); err == nil {
			to = browser.Point{
				X: box.X + h.inset(box.Width),
				Y: box.Y + h.inset(box.Height),
			}
			steps = between(h.rnd, 5, 15)
			aimed = true
		} else if !errors.Is(err, browser.ErrNoBoundingBox) {
			return err
		}
	}

	if !aimed {
		size, err := h.page.Viewport(ctx)
		if err != nil {
			return err
		}
		to = browser.Point{
			X: float64(h.inViewport(size.Width)),
			Y: float64(h.inViewport(size.Height)),
		}
		steps = between(h.rnd, 3, 10)
	}

	if err := h.page.MouseMove(ctx, to, steps); err != nil {
		return err
	}
	h.Delay(100*time.Millisecond, 300*time.Millisecond)
	return nil
}

// inset returns an offset inside a span, keeping 5px from each edge when
// the span allows it.
func (h *Humanizer) inset(span float64) float64 {
	if span <= 10 {
		return span / 2
	}
	return 5 + h.rnd.Float64()*(span-10)
}

// inViewport returns a coordinate at least 100px from either edge when the
// dimension allows it.
func (h *Humanizer) inViewport(dim int) int {
	if dim <= 200 {
		return dim / 2
	}
	return between(h.rnd, 100, dim-100)
}

// Navigate pauses, loads url, reads for a moment, then moves the pointer.
func (h *Humanizer) Navigate(ctx context.Context, url string) error {
	h.Delay(500*time.Millisecond, 1500*time.Millisecond)
	if err := h.page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	h.Delay(2*time.Second, 4*time.Second)
	return h.MouseMove(ctx, nil)
}

// Click moves to el, pauses briefly, clicks and waits for the page to react.
func (h *Humanizer) Click(ctx context.Context, el browser.Element) error {
	h.Delay(300*time.Millisecond, time.Second)
	if err := h.MouseMove(ctx, el); err != nil {
		return err
	}
	h.Delay(100*time.Millisecond, 300*time.Millisecond)
	if err := el.Click(ctx); err != nil {
		return err
	}
	h.Delay(500*time.Millisecond, 1500*time.Millisecond)
	return nil
}

// Type focuses el and types text one character at a time, optionally
// clearing it first. About one character in twenty is followed by a longer
// pause.
func (h *Humanizer) Type(ctx context.Context, el browser.Element, text string, clear bool) error {
	if err := h.Click(ctx, el); err != nil {
		return err
	}
	if clear {
		if err := el.Clear(ctx); err != nil {
			return err
		}
		h.Delay(200*time.Millisecond, 500*time.Millisecond)
	}

	for _, ch := range text {
		if err := el.Type(ctx, string(ch)); err != nil {
			return err
		}
		h.Delay(50*time.Millisecond, 150*time.Millisecond)
		if h.rnd.Float64() < 0.05 {
			h.Delay(300*time.Millisecond, 800*time.Millisecond)
		}
	}
	h.Delay(300*time.Millisecond, 800*time.Millisecond)
	return nil
}

// Retry runs fn up to attempts times, sleeping delay between failures. The
// context is checked before every attempt.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) error, opts ...Option) error {
	if attempts < 1 {
		attempts = 1
	}
	o := buildOptions(opts)

	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return fmt.Errorf("%w (last error: %v)", ctxErr, err)
			}
			return ctxErr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if i < attempts-1 {
			o.sleeper.Sleep(delay)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}
