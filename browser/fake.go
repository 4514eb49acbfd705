package browser

import (
	"context"
	"fmt"
	"sync"
)

// FakePage is an in-memory Page for tests. Elements are registered per
// selector and every interaction is appended to Actions.
type FakePage struct {
	mu       sync.Mutex
	Elements map[string][]*FakeElement
	Size     Size
	Mouse    Point
	Current  string
	Actions  []string
	Shots    int

	// NavigateErr, when set, is returned by Navigate.
	NavigateErr error

	// QueryErrs maps selectors to the error their lookups return.
	QueryErrs map[string]error
}

// NewFakePage returns an empty page with a 1280x720 viewport.
func NewFakePage() *FakePage {
	return &FakePage{
		Elements: map[string][]*FakeElement{},
		Size:     Size{Width: 1280, Height: 720},
	}
}

// Add registers elements under a selector.
func (p *FakePage) Add(selector string, els ...*FakeElement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range els {
		el.page = p
	}
	p.Elements[selector] = append(p.Elements[selector], els...)
}

// Remove drops an element from every selector it is registered under.
func (p *FakePage) Remove(el *FakeElement) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for sel, els := range p.Elements {
		kept := els[:0]
		for _, e := range els {
			if e != el {
				kept = append(kept, e)
			}
		}
		p.Elements[sel] = kept
	}
}

// Record appends an action.
func (p *FakePage) Record(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Actions = append(p.Actions, fmt.Sprintf(format, args...))
}

// History returns a copy of the recorded actions.
func (p *FakePage) History() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Actions))
	copy(out, p.Actions)
	return out
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.mu.Lock()
	p.Current = url
	p.mu.Unlock()
	p.Record("navigate %s", url)
	return nil
}

func (p *FakePage) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Current, nil
}

func (p *FakePage) Viewport(ctx context.Context) (Size, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Size, nil
}

func (p *FakePage) SetViewport(ctx context.Context, size Size) error {
	p.mu.Lock()
	p.Size = size
	p.mu.Unlock()
	p.Record("viewport %dx%d", size.Width, size.Height)
	return nil
}

func (p *FakePage) MouseMove(ctx context.Context, to Point, steps int) error {
	p.mu.Lock()
	p.Mouse = to
	p.mu.Unlock()
	p.Record("move %.0f,%.0f steps=%d", to.X, to.Y, steps)
	return nil
}

func (p *FakePage) Wheel(ctx context.Context, at Point, deltaY float64) error {
	p.Record("wheel %.0f", deltaY)
	return nil
}

func (p *FakePage) Query(ctx context.Context, selector string) (Element, bool, error) {
	els, err := p.QueryAll(ctx, selector)
	if err != nil {
		return nil, false, err
	}
	if len(els) == 0 {
		return nil, false, nil
	}
	return els[0], true, nil
}

func (p *FakePage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.QueryErrs[selector]; err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(p.Elements[selector]))
	for _, el := range p.Elements[selector] {
		out = append(out, el)
	}
	return out, nil
}

func (p *FakePage) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	p.Shots++
	p.mu.Unlock()
	return []byte("\x89PNG fake"), nil
}

// FakeElement is a node on a FakePage.
type FakeElement struct {
	Name     string
	Content  string
	Attrs    map[string]string
	Box      *Box
	Children map[string][]*FakeElement
	Typed    string
	Clicks   int
	Uploaded []string

	// ClickErr, when set, is returned by Click.
	ClickErr error

	// UploadErr, when set, is returned by Upload.
	UploadErr error

	// OnClick runs after a successful click, e.g. to mutate the page.
	OnClick func(p *FakePage)

	page *FakePage
}

func (e *FakeElement) Text(ctx context.Context) (string, error) {
	return e.Content, nil
}

func (e *FakeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *FakeElement) BoundingBox(ctx context.Context) (Box, error) {
	if e.Box == nil {
		return Box{}, ErrNoBoundingBox
	}
	return *e.Box, nil
}

func (e *FakeElement) Click(ctx context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.Clicks++
	if e.page != nil {
		e.page.Record("click %s", e.Name)
		if e.OnClick != nil {
			e.OnClick(e.page)
		}
	}
	return nil
}

func (e *FakeElement) Clear(ctx context.Context) error {
	e.Typed = ""
	return nil
}

func (e *FakeElement) Type(ctx context.Context, text string) error {
	e.Typed += text
	return nil
}

func (e *FakeElement) Upload(ctx context.Context, paths ...string) error {
	if e.UploadErr != nil {
		return e.UploadErr
	}
	e.Uploaded = append(e.Uploaded, paths...)
	if e.page != nil {
		e.page.Record("upload %s", e.Name)
	}
	return nil
}

func (e *FakeElement) Query(ctx context.Context, selector string) (Element, bool, error) {
	children, _ := e.QueryAll(ctx, selector)
	if len(children) == 0 {
		return nil, false, nil
	}
	return children[0], true, nil
}

func (e *FakeElement) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	out := make([]Element, 0, len(e.Children[selector]))
	for _, child := range e.Children[selector] {
		if child.page == nil {
			child.page = e.page
		}
		out = append(out, child)
	}
	return out, nil
}
