package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConnected is returned when no browser is reachable on the debug port.
	ErrNotConnected = errors.New("browser not connected")

	// ErrNoBoundingBox is returned for elements that are not rendered.
	ErrNoBoundingBox = errors.New("element has no bounding box")
)

// Point is a position in CSS pixels relative to the viewport.
type Point struct {
	X float64
	Y float64
}

// Box is an element's border box in CSS pixels.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the middle of the box.
func (b Box) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Size is a viewport size.
type Size struct {
	Width  int
	Height int
}

// Page is a single browser tab. Absent elements are reported through the
// found result, not as errors.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)

	Viewport(ctx context.Context) (Size, error)
	SetViewport(ctx context.Context, size Size) error

	// MouseMove moves the pointer from its last position to "to" in steps
	// intermediate events.
	MouseMove(ctx context.Context, to Point, steps int) error

	// Wheel dispatches a vertical wheel event at a point.
	Wheel(ctx context.Context, at Point, deltaY float64) error

	Query(ctx context.Context, selector string) (el Element, found bool, err error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	Screenshot(ctx context.Context) ([]byte, error)
}

// Element is a handle to a node on a Page.
type Element interface {
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (value string, found bool, err error)

	// BoundingBox returns ErrNoBoundingBox when the element is not rendered.
	BoundingBox(ctx context.Context) (Box, error)

	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	Type(ctx context.Context, text string) error

	// Upload sets the files of an <input type="file">.
	Upload(ctx context.Context, paths ...string) error

	Query(ctx context.Context, selector string) (el Element, found bool, err error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Queryable is anything that can look up a child element.
type Queryable interface {
	Query(ctx context.Context, selector string) (Element, bool, error)
}

// QueryFirst tries selectors in order and returns the first match.
func QueryFirst(ctx context.Context, q Queryable, selectors []string) (Element, bool, error) {
	for _, sel := range selectors {
		el, found, err := q.Query(ctx, sel)
		if err != nil {
			return nil, false, err
		}
		if found {
			return el, true, nil
		}
	}
	return nil, false, nil
}

// WaitFor polls for selector until it matches or timeout elapses. A timeout
// is reported as found == false, not as an error.
func WaitFor(ctx context.Context, q Queryable, selector string, timeout time.Duration) (Element, bool, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		el, found, err := q.Query(ctx, selector)
		if err != nil || found {
			return el, found, err
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-deadline.C:
			return nil, false, nil
		case <-ticker.C:
		}
	}
}
