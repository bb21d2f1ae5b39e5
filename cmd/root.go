// Package cmd defines and implements the CLI commands for the pagequery
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagequery/internal/api"
	"github.com/JakeFAU/pagequery/internal/config"
	"github.com/JakeFAU/pagequery/internal/server"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the set of services commands use. Tests inject a fake through
// newApp.
type App interface {
	Close()
	Logger() *zap.Logger
	Run(ctx context.Context) error
	Checker() api.PermissionChecker
	Scraper() api.Scraper
	Answerer() api.Answerer
}

// newApp is the application factory.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	return server.Build(ctx, cfg, nil)
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "pagequery",
		Short: "Scrape a web page and ask a local language model about it.",
		Long: `pagequery checks robots.txt permission for a URL, extracts a page's text
with a headless browser or a plain HTTP fetch, keeps the last rendered page on
disk, and answers questions about it through a local Ollama model.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML, or JSON)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newQueryCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := execute(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string, out io.Writer) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("command execution failed: %w", err)
	}
	return nil
}
