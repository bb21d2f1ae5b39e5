// Package headless renders pages in a short-lived headless browser and returns
// the resulting DOM as HTML.
//
// Every Render call launches its own browser and tears it down before
// returning. Nothing is pooled or shared between calls.
package headless

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultNavigationTimeout bounds page loading when Config leaves it unset.
const DefaultNavigationTimeout = 60 * time.Second

var (
	// ErrLaunch reports that the browser or its first page could not start.
	ErrLaunch = errors.New("browser launch failed")
	// ErrNavigation reports a failure while loading or capturing the page.
	ErrNavigation = errors.New("page navigation failed")
	// ErrTimeout reports that the page did not finish loading in time.
	ErrTimeout = errors.New("page load timed out")
)

// Renderer loads a URL in a browser and returns the rendered HTML.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Config controls the behavior of the headless renderers.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	Headless          bool
}

func (c Config) navTimeout() time.Duration {
	if c.NavigationTimeout > 0 {
		return c.NavigationTimeout
	}
	return DefaultNavigationTimeout
}

// New returns the renderer for the named engine ("chromedp" or "rod").
func New(engine string, cfg Config) (Renderer, error) {
	switch engine {
	case "chromedp", "":
		return NewChromedp(cfg), nil
	case "rod":
		return NewRod(cfg), nil
	default:
		return nil, fmt.Errorf("unknown render engine %q", engine)
	}
}

func launchError(err error) error {
	return fmt.Errorf("%w: %w", ErrLaunch, err)
}

// navigationError tags err as a timeout when the navigation context expired,
// and as a navigation failure otherwise.
func navigationError(navCtx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrNavigation, err)
}
