// Package extractor turns web pages into plain text. It offers two
// independent paths: Render drives a headless browser and persists the result
// as the current scrape record; Direct performs a plain GET and only returns
// the text.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	collyfetcher "github.com/JakeFAU/pagequery/internal/fetcher/colly"
	"github.com/JakeFAU/pagequery/internal/fetcher/headless"
	"github.com/JakeFAU/pagequery/internal/htmltext"
	"github.com/JakeFAU/pagequery/internal/logging"
	"github.com/JakeFAU/pagequery/internal/metrics"
	"github.com/JakeFAU/pagequery/internal/storage"
)

// Fetcher performs a single plain HTTP GET.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (collyfetcher.Response, error)
}

// Service runs both extraction paths.
type Service struct {
	renderer headless.Renderer
	fetcher  Fetcher
	store    storage.RecordStore
	logger   *zap.Logger
}

// New wires a Service.
func New(renderer headless.Renderer, fetcher Fetcher, store storage.RecordStore, logger *zap.Logger) *Service {
	logger = logging.OrNop(logger)
	return &Service{
		renderer: renderer,
		fetcher:  fetcher,
		store:    store,
		logger:   logger,
	}
}

// Render loads url in a fresh headless browser, converts the rendered DOM to
// visible text, and saves it as the current scrape record. On failure the
// returned error is a *RenderError and the previous record is kept.
func (s *Service) Render(ctx context.Context, url string) (storage.ScrapeRecord, error) {
	logger := s.logger.With(zap.String("url", url))

	document, err := s.renderer.Render(ctx, url)
	if err != nil {
		return s.renderFailure(logger, url, renderKind(err), err)
	}

	text, err := htmltext.Visible(document)
	if err != nil {
		return s.renderFailure(logger, url, FailureParse, err)
	}

	record := storage.ScrapeRecord{URL: url, Content: text}
	if err := s.store.Save(ctx, record); err != nil {
		return s.renderFailure(logger, url, FailureStore, fmt.Errorf("save record: %w", err))
	}

	metrics.ObserveScrape(metrics.ModeRendered, "success", len(text))
	logger.Info("rendered scrape stored", zap.Int("text_bytes", len(text)))
	return record, nil
}

func (s *Service) renderFailure(
	logger *zap.Logger,
	url string,
	kind FailureKind,
	err error,
) (storage.ScrapeRecord, error) {
	metrics.ObserveScrape(metrics.ModeRendered, string(kind), 0)
	logger.Error("Scraping failed", zap.String("kind", string(kind)), zap.Error(err))
	return storage.ScrapeRecord{}, &RenderError{Kind: kind, URL: url, Err: err}
}

func renderKind(err error) FailureKind {
	switch {
	case errors.Is(err, headless.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, headless.ErrLaunch):
		return FailureLaunch
	default:
		return FailureNavigation
	}
}

// Direct fetches url without a browser and returns the raw text of the body,
// script and style contents included. A non-200 response yields a
// *StatusError. The scrape record is never touched.
func (s *Service) Direct(ctx context.Context, url string) (string, error) {
	resp, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.ObserveScrape(metrics.ModeDirect, "error", 0)
		return "", fmt.Errorf("direct fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ObserveScrape(metrics.ModeDirect, "upstream_status", 0)
		s.logger.Warn("direct fetch returned non-200",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return "", &StatusError{URL: url, Code: resp.StatusCode}
	}
	text, err := htmltext.Raw(string(resp.Body))
	if err != nil {
		metrics.ObserveScrape(metrics.ModeDirect, "parse", 0)
		return "", fmt.Errorf("extract text from %s: %w", url, err)
	}
	metrics.ObserveScrape(metrics.ModeDirect, "success", len(text))
	return text, nil
}
