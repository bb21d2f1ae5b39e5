package headless

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Chromedp renders pages with headless Chrome driven by chromedp.
type Chromedp struct {
	cfg Config
}

var _ Renderer = (*Chromedp)(nil)

// NewChromedp creates a chromedp-backed renderer.
func NewChromedp(cfg Config) *Chromedp {
	return &Chromedp{cfg: cfg}
}

// Render starts Chrome, loads url, and returns the outer HTML of the document.
func (c *Chromedp) Render(ctx context.Context, url string) (string, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	// The first Run starts the browser and opens the page target.
	if err := chromedp.Run(browserCtx); err != nil {
		return "", launchError(err)
	}

	navCtx, cancel := context.WithTimeout(browserCtx, c.cfg.navTimeout())
	defer cancel()

	var html string
	actions := []chromedp.Action{
		c.identityAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(navCtx, actions...); err != nil {
		return "", navigationError(navCtx, fmt.Errorf("chromedp run: %w", err))
	}
	return html, nil
}

func (c *Chromedp) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if c.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.cfg.UserAgent))
	}
	return opts
}

// identityAction presents the configured user agent both as the browser
// identity and as an explicit request header.
func (c *Chromedp) identityAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if c.cfg.UserAgent == "" {
			return nil
		}
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := emulation.SetUserAgentOverride(c.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		headers := network.Headers{"User-Agent": c.cfg.UserAgent}
		if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
			return fmt.Errorf("set extra headers: %w", err)
		}
		return nil
	})
}
