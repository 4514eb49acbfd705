package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/hairizuan-noorazman/linkedin-agent/logger"
)

// ChromePage drives a tab of an already running Chrome over the DevTools
// protocol. The browser keeps running after Close so the logged-in profile
// survives between runs.
type ChromePage struct {
	mu          sync.Mutex
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	mouse       Point
	logger      logger.Logger
}

// Connect attaches to Chrome listening on the given debug port and opens a tab.
func Connect(ctx context.Context, port int, log logger.Logger) (*ChromePage, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, fmt.Sprintf("ws://127.0.0.1:%d", port))
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			log.Debug(ctx, fmt.Sprintf(format, args...), nil)
		}),
	)

	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	log.Info(ctx, "connected to chrome", map[string]interface{}{
		"port": port,
	})

	return &ChromePage{
		allocCancel: allocCancel,
		ctx:         tabCtx,
		cancel:      cancel,
		logger:      log.WithField("component", "chrome"),
	}, nil
}

// Close detaches from the browser and closes the tab.
func (p *ChromePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancel()
	p.allocCancel()
	return nil
}

func (p *ChromePage) run(actions ...chromedp.Action) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return chromedp.Run(p.ctx, actions...)
}

func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	p.logger.Debug(ctx, "navigating", map[string]interface{}{"url": url})
	return p.run(chromedp.Navigate(url))
}

func (p *ChromePage) URL(ctx context.Context) (string, error) {
	var url string
	if err := p.run(chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to get URL: %w", err)
	}
	return url, nil
}

func (p *ChromePage) Viewport(ctx context.Context) (Size, error) {
	var dims []int
	if err := p.run(chromedp.Evaluate(`[window.innerWidth, window.innerHeight]`, &dims)); err != nil {
		return Size{}, err
	}
	if len(dims) != 2 {
		return Size{}, fmt.Errorf("unexpected viewport result %v", dims)
	}
	return Size{Width: dims[0], Height: dims[1]}, nil
}

func (p *ChromePage) SetViewport(ctx context.Context, size Size) error {
	return p.run(chromedp.EmulateViewport(int64(size.Width), int64(size.Height)))
}

func (p *ChromePage) MouseMove(ctx context.Context, to Point, steps int) error {
	if steps < 1 {
		steps = 1
	}
	from := p.mouse
	err := p.run(chromedp.ActionFunc(func(ctx context.Context) error {
		for i := 1; i <= steps; i++ {
			t := float64(i) / float64(steps)
			x := from.X + (to.X-from.X)*t
			y := from.Y + (to.Y-from.Y)*t
			if err := input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
	if err == nil {
		p.mouse = to
	}
	return err
}

func (p *ChromePage) Wheel(ctx context.Context, at Point, deltaY float64) error {
	return p.run(chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, at.X, at.Y).
			WithDeltaX(0).
			WithDeltaY(deltaY).Do(ctx)
	}))
}

func (p *ChromePage) Query(ctx context.Context, selector string) (Element, bool, error) {
	return p.query(selector)
}

func (p *ChromePage) query(selector string, opts ...chromedp.QueryOption) (Element, bool, error) {
	els, err := p.queryAll(selector, opts...)
	if err != nil || len(els) == 0 {
		return nil, false, err
	}
	return els[0], true, nil
}

func (p *ChromePage) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	return p.queryAll(selector)
}

func (p *ChromePage) queryAll(selector string, opts ...chromedp.QueryOption) ([]Element, error) {
	var nodes []*cdp.Node
	opts = append([]chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}, opts...)
	if err := p.run(chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}

	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &chromeElement{page: p, node: n})
	}
	return els, nil
}

func (p *ChromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

type chromeElement struct {
	page *ChromePage
	node *cdp.Node
}

func (e *chromeElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.page.run(chromedp.Text(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return text, nil
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	if err := e.page.run(chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID)); err != nil {
		return "", false, err
	}
	return value, ok, nil
}

func (e *chromeElement) BoundingBox(ctx context.Context) (Box, error) {
	var model *dom.BoxModel
	err := e.page.run(chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		model, err = dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		return err
	}))
	if err != nil || model == nil || len(model.Border) < 8 {
		return Box{}, ErrNoBoundingBox
	}
	q := model.Border
	return Box{X: q[0], Y: q[1], Width: q[2] - q[0], Height: q[5] - q[1]}, nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	return e.page.run(chromedp.Click(e.ids(), chromedp.ByNodeID))
}

func (e *chromeElement) Clear(ctx context.Context) error {
	return e.page.run(chromedp.Clear(e.ids(), chromedp.ByNodeID))
}

func (e *chromeElement) Type(ctx context.Context, text string) error {
	return e.page.run(chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID))
}

func (e *chromeElement) Upload(ctx context.Context, paths ...string) error {
	return e.page.run(chromedp.SetUploadFiles(e.ids(), paths, chromedp.ByNodeID))
}

func (e *chromeElement) Query(ctx context.Context, selector string) (Element, bool, error) {
	return e.page.query(selector, chromedp.FromNode(e.node))
}

func (e *chromeElement) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	return e.page.queryAll(selector, chromedp.FromNode(e.node))
}
