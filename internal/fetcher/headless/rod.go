package headless

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Rod renders pages with a stealth-patched Chrome driven by go-rod.
type Rod struct {
	cfg Config
}

var _ Renderer = (*Rod)(nil)

// NewRod creates a go-rod-backed renderer.
func NewRod(cfg Config) *Rod {
	return &Rod{cfg: cfg}
}

// Render launches Chrome, loads url in a stealth page, and returns its HTML.
func (r *Rod) Render(ctx context.Context, url string) (html string, err error) {
	l := launcher.New().
		Context(ctx).
		Headless(r.cfg.Headless).
		Set("disable-blink-features", "AutomationControlled")
	controlURL, err := l.Launch()
	if err != nil {
		return "", launchError(fmt.Errorf("rod launch: %w", err))
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", launchError(fmt.Errorf("rod connect: %w", err))
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("rod close browser: %w", cerr)
		}
	}()

	page, err := stealth.Page(browser)
	if err != nil {
		return "", launchError(fmt.Errorf("rod open page: %w", err))
	}
	defer func() {
		_ = page.Close()
	}()

	if r.cfg.UserAgent != "" {
		override := &proto.NetworkSetUserAgentOverride{UserAgent: r.cfg.UserAgent}
		if err := page.SetUserAgent(override); err != nil {
			return "", launchError(fmt.Errorf("rod set user-agent: %w", err))
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, r.cfg.navTimeout())
	defer cancel()
	nav := page.Context(navCtx)

	if err := nav.Navigate(url); err != nil {
		return "", navigationError(navCtx, fmt.Errorf("rod navigate: %w", err))
	}
	if err := nav.WaitLoad(); err != nil {
		return "", navigationError(navCtx, fmt.Errorf("rod wait load: %w", err))
	}
	html, err = nav.HTML()
	if err != nil {
		return "", navigationError(navCtx, fmt.Errorf("rod capture html: %w", err))
	}
	return html, nil
}
