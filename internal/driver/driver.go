package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/performance"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configure one browser launch
type Options struct {
	// ExecPath points at a specific Chromium-family binary; empty uses the
	// default lookup
	ExecPath   string
	Headful    bool
	UserAgent  string
	NavTimeout time.Duration
}

func (o Options) navTimeout() time.Duration {
	if o.NavTimeout <= 0 {
		return 30 * time.Second
	}
	return o.NavTimeout
}

// Chrome owns one browser process; sessions are isolated tabs inside it
type Chrome struct {
	opts          Options
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	log           *zap.Logger
}

// Launch starts the browser. The parent context bounds the browser's
// lifetime; Close releases it earlier.
func Launch(ctx context.Context, opts Options, log *zap.Logger) (*Chrome, error) {
	if log == nil {
		log = zap.NewNop()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.Headful {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// an empty Run forces the process to start so launch failures surface
	// here instead of inside the first suite
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	log.Debug("browser launched",
		zap.String("execPath", opts.ExecPath),
		zap.Bool("headful", opts.Headful))
	return &Chrome{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		log:           log,
	}, nil
}

// Close tears the browser process down
func (c *Chrome) Close() {
	c.browserCancel()
	c.allocCancel()
}

// NewSession opens a fresh tab. Sessions are independent: closing one never
// touches another, and the caller's context only bounds this session's work.
func (c *Chrome) NewSession(ctx context.Context) (*Session, error) {
	if err := c.browserCtx.Err(); err != nil {
		return nil, fmt.Errorf("browser closed: %w", err)
	}
	tabCtx, tabCancel := chromedp.NewContext(c.browserCtx)
	s := &Session{
		id:         uuid.NewString(),
		ctx:        tabCtx,
		cancel:     tabCancel,
		navTimeout: c.opts.navTimeout(),
		log:        c.log,
	}
	c.log.Debug("session opened", zap.String("session", s.id))
	return s, nil
}

// Session is one tab; all methods are safe to call until Close
type Session struct {
	id         string
	ctx        context.Context
	cancel     context.CancelFunc
	navTimeout time.Duration
	log        *zap.Logger
}

// ID identifies the session in logs
func (s *Session) ID() string { return s.id }

// Close discards the tab
func (s *Session) Close() { s.cancel() }

// run executes actions on the tab under the per-action timeout, honoring the
// caller's cancellation as well
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(s.ctx, s.navTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(tctx, actions...)
}

// Navigate loads url and, when waitFor is set, blocks until that selector is
// visible
func (s *Session) Navigate(ctx context.Context, url, waitFor string) error {
	actions := []chromedp.Action{chromedp.Navigate(url)}
	if waitFor != "" {
		actions = append(actions, chromedp.WaitVisible(waitFor, chromedp.ByQuery))
	}
	if err := s.run(ctx, actions...); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// SetViewport overrides the device metrics for this tab
func (s *Session) SetViewport(ctx context.Context, width, height int64, mobile bool) error {
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetDeviceMetricsOverride(width, height, 1.0, mobile).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("set viewport %dx%d: %w", width, height, err)
	}
	return nil
}

// Screenshot captures the full page as PNG, beyond the visible viewport
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithCaptureBeyondViewport(true).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

// ScreenshotElement captures just the first visible node matching selector
func (s *Session) ScreenshotElement(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.Screenshot(selector, &buf, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("capture %q: %w", selector, err)
	}
	return buf, nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.Click(selector, chromedp.NodeVisible, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

func (s *Session) TypeText(ctx context.Context, selector, text string) error {
	if err := s.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("type into %q: %w", selector, err)
	}
	return nil
}

func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

func (s *Session) Focus(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.Focus(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("focus %q: %w", selector, err)
	}
	return nil
}

// Hover raises mouseover on the first match; headless has no real pointer so
// the event is synthesized in-page
func (s *Session) Hover(ctx context.Context, selector string) error {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.dispatchEvent(new MouseEvent('mouseover', {bubbles: true}));
		el.dispatchEvent(new MouseEvent('mouseenter'));
		return true;
	})()`, selector)

	var found bool
	if err := s.Evaluate(ctx, expr, &found); err != nil {
		return fmt.Errorf("hover %q: %w", selector, err)
	}
	if !found {
		return fmt.Errorf("hover %q: selector matched nothing", selector)
	}
	return nil
}

// Evaluate runs a JS expression; out may be nil to discard the result
func (s *Session) Evaluate(ctx context.Context, expr string, out any) error {
	return s.run(ctx, chromedp.Evaluate(expr, out))
}

// PerfMetrics snapshots the tab's CDP performance counters
func (s *Session) PerfMetrics(ctx context.Context) (map[string]float64, error) {
	var metrics []*performance.Metric
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := performance.Enable().Do(ctx); err != nil {
			return err
		}
		var err error
		metrics, err = performance.GetMetrics().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("collect performance metrics: %w", err)
	}

	out := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		out[m.Name] = m.Value
	}
	return out, nil
}
