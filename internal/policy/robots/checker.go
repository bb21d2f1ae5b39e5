// Package robots decides whether a URL may be scraped according to the site's
// robots.txt policy for the wildcard agent.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagequery/internal/logging"
	"github.com/JakeFAU/pagequery/internal/metrics"
)

// WildcardAgent is the crawler identity the policy is evaluated for.
const WildcardAgent = "*"

const maxRobotsBytes = 1 << 20

// Config controls the checker's outbound request.
type Config struct {
	// UserAgent is sent on the robots.txt request. It does not change which
	// group is evaluated.
	UserAgent string
	// Timeout bounds the robots.txt request. Zero means no timeout.
	Timeout time.Duration
}

// Checker fetches and evaluates robots.txt for a site.
type Checker struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewChecker builds a Checker. A nil client gets a fresh http.Client with the
// configured timeout.
func NewChecker(cfg Config, client *http.Client, logger *zap.Logger) *Checker {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger = logging.OrNop(logger)
	return &Checker{
		client:    client,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Allowed reports whether the wildcard agent may fetch rawURL. Any failure to
// fetch or parse the policy is treated as a denial; errors are logged, never
// returned.
func (c *Checker) Allowed(ctx context.Context, rawURL string) bool {
	allowed := c.allowed(ctx, rawURL)
	metrics.ObservePermission(rawURL, allowed)
	return allowed
}

func (c *Checker) allowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		c.logger.Warn("robots check rejected malformed url", zap.String("url", rawURL), zap.Error(err))
		return false
	}
	data, err := c.load(ctx, RobotsURL(parsed))
	if err != nil {
		c.logger.Warn("robots check failed; denying", zap.String("url", rawURL), zap.Error(err))
		return false
	}
	return data.TestAgent(testPath(parsed), WildcardAgent)
}

// RobotsURL returns the robots.txt location at the root of u's host.
func RobotsURL(u *url.URL) string {
	robotsURL := *u
	robotsURL.Path = path.Join("/", "robots.txt")
	robotsURL.RawPath = ""
	robotsURL.RawQuery = ""
	robotsURL.Fragment = ""
	robotsURL.User = nil
	return robotsURL.String()
}

func (c *Checker) load(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("Failed to close robots response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots (status %d): %w", resp.StatusCode, err)
	}
	return data, nil
}

func testPath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
