package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"xgrab/pkg/logger"
)

// Config controls the behavior of the headless driver
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	Headless          bool
}

// Driver owns a headless Chrome tab and implements Page against it
type Driver struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	tab         context.Context
	tabCancel   context.CancelFunc
	log         logger.Logger
}

// NewDriver creates a headless browser driver backed by chromedp
func NewDriver(cfg Config, log logger.Logger) *Driver {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if log == nil {
		log = logger.GetLogger()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", false),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tab, tabCancel := chromedp.NewContext(allocCtx)

	return &Driver{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		tab:         tab,
		tabCancel:   tabCancel,
		log:         log,
	}
}

// Close tears down the tab and the browser process
func (d *Driver) Close() {
	d.tabCancel()
	d.allocCancel()
}

// Navigate opens url in the driver's tab and waits for the body to render
func (d *Driver) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := d.bound(ctx, d.cfg.NavigationTimeout)
	defer cancel()

	actions := []chromedp.Action{}
	if d.cfg.UserAgent != "" {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetUserAgentOverride(d.cfg.UserAgent).Do(ctx)
		}))
	}
	actions = append(actions,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)

	d.log.DebugWithFields("navigating", map[string]interface{}{"url": url})
	if err := chromedp.Run(navCtx, actions...); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Location returns the tab's current URL
func (d *Driver) Location(ctx context.Context) (string, error) {
	runCtx, cancel := d.bound(ctx, 0)
	defer cancel()

	var loc string
	if err := chromedp.Run(runCtx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

// HTML snapshots the rendered document
func (d *Driver) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := d.bound(ctx, 0)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("snapshot document: %w", err)
	}
	return html, nil
}

// ScrollToBottom scrolls the viewport to the document bottom
func (d *Driver) ScrollToBottom(ctx context.Context) error {
	runCtx, cancel := d.bound(ctx, 0)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
	)
	if err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	return nil
}

// ContentHeight returns document.body.scrollHeight
func (d *Driver) ContentHeight(ctx context.Context) (int64, error) {
	runCtx, cancel := d.bound(ctx, 0)
	defer cancel()

	var height int64
	if err := chromedp.Run(runCtx, chromedp.Evaluate(`document.body.scrollHeight`, &height)); err != nil {
		return 0, fmt.Errorf("read content height: %w", err)
	}
	return height, nil
}

// AtBottom reports whether the viewport reached the document bottom
func (d *Driver) AtBottom(ctx context.Context) (bool, error) {
	runCtx, cancel := d.bound(ctx, 0)
	defer cancel()

	var atBottom bool
	err := chromedp.Run(runCtx,
		chromedp.Evaluate(`(window.innerHeight + window.scrollY) >= document.body.scrollHeight - 2`, &atBottom),
	)
	if err != nil {
		return false, fmt.Errorf("probe viewport: %w", err)
	}
	return atBottom, nil
}

// bound derives a tab context that also honors the caller's context and
// an optional timeout.
func (d *Driver) bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(d.tab)
	stop := context.AfterFunc(ctx, cancel)
	if timeout > 0 {
		var tcancel context.CancelFunc
		runCtx, tcancel = context.WithTimeout(runCtx, timeout)
		return runCtx, func() { stop(); tcancel(); cancel() }
	}
	return runCtx, func() { stop(); cancel() }
}

var _ Page = (*Driver)(nil)
