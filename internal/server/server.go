// Package server builds the application's dependencies and runs the HTTP
// service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/pagequery/internal/api"
	"github.com/JakeFAU/pagequery/internal/config"
	"github.com/JakeFAU/pagequery/internal/extractor"
	collyfetcher "github.com/JakeFAU/pagequery/internal/fetcher/colly"
	"github.com/JakeFAU/pagequery/internal/fetcher/headless"
	"github.com/JakeFAU/pagequery/internal/llm"
	"github.com/JakeFAU/pagequery/internal/logging"
	"github.com/JakeFAU/pagequery/internal/metrics"
	"github.com/JakeFAU/pagequery/internal/policy/robots"
	"github.com/JakeFAU/pagequery/internal/relay"
	"github.com/JakeFAU/pagequery/internal/storage"
	"github.com/JakeFAU/pagequery/internal/storage/local"
	"github.com/JakeFAU/pagequery/internal/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     storage.RecordStore
	checker   *robots.Checker
	extractor *extractor.Service
	relay     *relay.Relay
	apiServer *api.Server
	closers   []func() error
	closeOnce sync.Once
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Checker returns the robots permission checker.
func (a *App) Checker() api.PermissionChecker { return a.checker }

// Scraper returns the extraction service.
func (a *App) Scraper() api.Scraper { return a.extractor }

// Answerer returns the query relay.
func (a *App) Answerer() api.Answerer { return a.relay }

// Handler returns the HTTP handler for the API.
func (a *App) Handler() http.Handler { return a.apiServer.Handler() }

// Build creates the application's dependencies. A nil logger builds one from
// cfg.Logging.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging.Development)
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
	}
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("render_engine", cfg.Render.Engine),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("model", cfg.LLM.Model),
	)

	store, err := app.setupStore(ctx)
	if err != nil {
		return nil, err
	}
	app.store = store

	renderer, err := headless.New(cfg.Render.Engine, headless.Config{
		UserAgent:         cfg.Render.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
		Headless:          cfg.Render.Headless,
	})
	if err != nil {
		app.closeAll()
		return nil, fmt.Errorf("renderer init failed: %w", err)
	}
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Direct.UserAgent,
		Timeout:   cfg.DirectTimeout(),
	})
	app.extractor = extractor.New(renderer, fetcher, store, logger.Named("extractor"))

	app.checker = robots.NewChecker(robots.Config{
		UserAgent: cfg.Robots.UserAgent,
		Timeout:   cfg.RobotsTimeout(),
	}, nil, logger.Named("robots"))

	model, err := llm.NewOllama(ctx, llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLMTimeout(),
	})
	if err != nil {
		app.closeAll()
		return nil, fmt.Errorf("model init failed: %w", err)
	}
	app.relay = relay.New(store, model, logger.Named("relay"))

	app.apiServer, err = api.NewServer(app.checker, app.extractor, app.relay, api.Options{
		RequestTimeout: cfg.RequestTimeout(),
		Model:          cfg.LLM.Model,
	}, logger.Named("api"))
	if err != nil {
		app.closeAll()
		return nil, fmt.Errorf("api init failed: %w", err)
	}

	return app, nil
}

func (a *App) setupStore(ctx context.Context) (storage.RecordStore, error) {
	switch a.cfg.Store.Driver {
	case config.DriverSQLite:
		a.logger.Info("using sqlite record store", zap.String("path", a.cfg.Store.Path))
		store, err := sqlite.Open(ctx, a.cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite record store init failed: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		a.logger.Info("using local record store", zap.String("path", a.cfg.Store.Path))
		store, err := local.New(local.Config{Path: a.cfg.Store.Path})
		if err != nil {
			return nil, fmt.Errorf("local record store init failed: %w", err)
		}
		return store, nil
	}
}

// Run serves HTTP until ctx is canceled or a termination signal arrives, then
// shuts the server down. Dependencies stay open until Close.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close releases dependencies and flushes the logger. Calls after the first
// are no-ops.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.closeAll()
		a.logger.Info("shutdown complete")
		if err := a.logger.Sync(); err != nil {
			a.logger.Debug("logger sync failed", zap.Error(err))
		}
	})
}

func (a *App) closeAll() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("dependency close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
