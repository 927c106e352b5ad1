package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// BrowserOptions configures the Chromium process.
type BrowserOptions struct {
	Headless  bool
	Bin       string // empty lets rod download or locate a browser
	NoSandbox bool
	UserAgent string

	ViewportWidth  int
	ViewportHeight int

	// ElementTimeout bounds single element lookups and interactions.
	ElementTimeout time.Duration
	// NavigationTimeout bounds page loads, which can be slow on report forms.
	NavigationTimeout time.Duration
}

// DefaultBrowserOptions returns headless defaults.
func DefaultBrowserOptions() BrowserOptions {
	return BrowserOptions{
		Headless:          true,
		ViewportWidth:     1366,
		ViewportHeight:    900,
		ElementTimeout:    30 * time.Second,
		NavigationTimeout: 180 * time.Second,
	}
}

// Browser is one Chromium process shared by all companies of an invocation.
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	opts     BrowserOptions
	log      zerolog.Logger
}

// Launch starts Chromium and connects to it.
func Launch(ctx context.Context, opts BrowserOptions, log zerolog.Logger) (*Browser, error) {
	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		Leakless(false).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled")
	if opts.NoSandbox {
		l = l.NoSandbox(true)
	}
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	if opts.UserAgent != "" {
		l = l.Set("user-agent", opts.UserAgent)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	log.Debug().Str("control_url", controlURL).Bool("headless", opts.Headless).Msg("browser started")
	return &Browser{launcher: l, browser: b, opts: opts, log: log}, nil
}

// NewPage opens a page in a fresh incognito context so no session state
// leaks between companies.
func (b *Browser) NewPage() (*RodPage, error) {
	inc, err := b.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	p, err := inc.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = inc.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	if b.opts.ViewportWidth > 0 && b.opts.ViewportHeight > 0 {
		err = p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             b.opts.ViewportWidth,
			Height:            b.opts.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			_ = inc.Close()
			return nil, fmt.Errorf("set viewport: %w", err)
		}
	}
	return &RodPage{
		page:       p,
		context:    inc,
		elementTTL: orDefault(b.opts.ElementTimeout, 30*time.Second),
		navTTL:     orDefault(b.opts.NavigationTimeout, 180*time.Second),
	}, nil
}

// Close shuts the browser down and removes its profile directory.
func (b *Browser) Close() error {
	err := b.browser.Close()
	b.launcher.Cleanup()
	return err
}

// RodPage implements Page on a rod page.
type RodPage struct {
	page       *rod.Page
	context    *rod.Browser
	elementTTL time.Duration
	navTTL     time.Duration
}

var _ Page = (*RodPage)(nil)

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Close closes the page and disposes its incognito context.
func (p *RodPage) Close() error {
	_ = p.page.Close()
	return p.context.Close()
}

func (p *RodPage) element(ctx context.Context, selector string) (*rod.Element, func(), error) {
	pg := p.page.Context(ctx).Timeout(p.elementTTL)
	el, err := pg.Element(selector)
	if err != nil {
		pg.CancelTimeout()
		return nil, nil, fmt.Errorf("find %s: %w", selector, err)
	}
	return el, func() { pg.CancelTimeout() }, nil
}

func (p *RodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx).Timeout(p.navTTL)
	defer pg.CancelTimeout()
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	return nil
}

func (p *RodPage) Fill(ctx context.Context, selector, value string) error {
	el, done, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	defer done()
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select %s: %w", selector, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("input %s: %w", selector, err)
	}
	return nil
}

func (p *RodPage) Click(ctx context.Context, selector string) error {
	el, done, err := p.element(ctx, selector)
	if err != nil {
		return err
	}
	defer done()
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (p *RodPage) Screenshot(ctx context.Context, selector string) ([]byte, error) {
	el, done, err := p.element(ctx, selector)
	if err != nil {
		return nil, err
	}
	defer done()
	b, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("screenshot %s: %w", selector, err)
	}
	return b, nil
}

func (p *RodPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	pg := p.page.Context(ctx).Timeout(timeout)
	defer pg.CancelTimeout()
	el, err := pg.Element(selector)
	if err == nil {
		err = el.WaitVisible()
	}
	switch {
	case err == nil:
		return true, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return false, nil
	default:
		return false, fmt.Errorf("wait %s: %w", selector, err)
	}
}

func (p *RodPage) Text(ctx context.Context, selector string) (string, error) {
	el, done, err := p.element(ctx, selector)
	if err != nil {
		return "", err
	}
	defer done()
	return el.Text()
}

func (p *RodPage) HTML(ctx context.Context, selector string) (string, error) {
	el, done, err := p.element(ctx, selector)
	if err != nil {
		return "", err
	}
	defer done()
	return el.HTML()
}

func (p *RodPage) ExpectDialog(ctx context.Context, accept bool) PendingDialog {
	wait, handle := p.page.Context(ctx).HandleDialog()
	d := &rodDialog{done: make(chan struct{})}
	go func() {
		defer close(d.done)
		e := wait()
		if err := ctx.Err(); err != nil {
			d.err = err
			return
		}
		d.message = e.Message
		d.err = handle(&proto.PageHandleJavaScriptDialog{Accept: accept})
	}()
	return d
}

type rodDialog struct {
	done    chan struct{}
	message string
	err     error
}

func (d *rodDialog) Wait(ctx context.Context) (string, error) {
	select {
	case <-d.done:
		return d.message, d.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
