package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kitbuilder587/tubescout/internal/config"
	"github.com/kitbuilder587/tubescout/internal/output"
	"github.com/kitbuilder587/tubescout/internal/search"
	"github.com/kitbuilder587/tubescout/internal/search/youtube"
)

// app holds what the commands share. Tests replace the factories.
type app struct {
	loadConfig func() (*config.Config, error)
	newClient  func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (search.SearchClient, error)
	newLogger  func(cfg config.LogConfig) (*zap.Logger, error)
	now        func() time.Time

	stdout io.Writer
	stderr io.Writer

	verbose   bool
	colorFlag string
}

func defaultApp() *app {
	return &app{
		loadConfig: config.Load,
		newClient:  newYouTubeClient,
		newLogger:  config.NewLogger,
		now:        time.Now,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}
}

func newYouTubeClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (search.SearchClient, error) {
	client, err := youtube.New(ctx, youtube.Config{
		APIKey:          cfg.YouTube.APIKey,
		BaseURL:         cfg.YouTube.BaseURL,
		Timeout:         cfg.YouTube.Timeout,
		BreakerFailures: cfg.YouTube.BreakerFailures,
	}, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tubescout",
		Short: "YouTube keyword search with CSV and XLSX export",
		Long: `tubescout collects YouTube videos matching a keyword inside a publish-date
window, newest first, and exports them as CSV or XLSX.

Example usage:
  tubescout search golang                                # last month, 50 videos
  tubescout search "rust async" --from 2024-01-01 --to 2024-01-31 --limit 200 --csv
  tubescout serve                                        # HTTP API and Telegram bot`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	colorDefault := a.colorFlag
	if colorDefault == "" {
		colorDefault = "auto"
	}
	root.PersistentFlags().StringVar(&a.colorFlag, "color", colorDefault, "colored output: auto, always, or never")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	root.AddCommand(newSearchCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newVersionCmd())

	return root
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return output.ExitSuccess
	}

	cliErr := output.FromError(err)
	a.printer().FormatError(cliErr)
	return cliErr.ExitCode
}

func (a *app) printer() *output.Printer {
	mode, err := output.ParseColorMode(a.colorFlag)
	if err != nil {
		mode = output.ColorNever
	}
	return output.NewPrinter(a.stdout, a.stderr, output.ResolveColors(mode))
}

// setup loads configuration and a logger for commands that talk to YouTube.
func (a *app) setup() (*config.Config, *zap.Logger, error) {
	if _, err := output.ParseColorMode(a.colorFlag); err != nil {
		return nil, nil, usageError(err)
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.Log
	if a.verbose {
		logCfg.Level = "debug"
	}
	logger, err := a.newLogger(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func usageError(err error) error {
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	return &output.CLIError{
		Summary:    "Invalid usage",
		Detail:     err.Error(),
		Suggestion: "Run 'tubescout --help' for usage",
		ExitCode:   output.ExitUsageError,
	}
}
