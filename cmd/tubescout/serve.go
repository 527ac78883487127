package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/tubescout/internal/httpapi"
	"github.com/kitbuilder587/tubescout/internal/metrics"
	"github.com/kitbuilder587/tubescout/internal/ratelimit"
	"github.com/kitbuilder587/tubescout/internal/service"
	"github.com/kitbuilder587/tubescout/internal/telegram"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the Telegram bot",
		Long: `Run the HTTP API on SERVER_PORT and, when TELEGRAM_BOT_TOKEN is set, the
Telegram bot. Both stop gracefully on SIGINT or SIGTERM.

Endpoints:
  GET /health
  GET /metrics
  GET /api/search?q=KEYWORD&from=YYYY-MM-DD&to=YYYY-MM-DD&limit=N
  GET /api/export/{csv|xlsx}?q=KEYWORD&from=...&to=...&limit=N`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context())
		},
	}
}

func (a *app) runServe(ctx context.Context) error {
	cfg, logger, err := a.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := a.newClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	m := metrics.New()
	agg := service.NewAggregator(service.AggregatorDeps{
		Search:  client,
		Logger:  logger,
		Metrics: m,
		Config:  service.AggregatorConfig{MaxEmptyPages: cfg.Search.MaxEmptyPages},
	})
	limits := service.QueryLimits{
		DefaultResults: cfg.Search.DefaultResults,
		MaxResults:     cfg.Search.MaxResults,
	}

	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.RateLimit.RequestsPerMinute})
	defer limiter.Stop()

	srv := httpapi.NewServer(httpapi.ServerDeps{
		Aggregator: agg,
		Limiter:    limiter,
		Metrics:    m,
		Logger:     logger,
		Config: httpapi.Config{
			Port:          cfg.Server.Port,
			Limits:        limits,
			SearchTimeout: cfg.Search.Timeout,
		},
	})

	var bot *telegram.Bot
	if cfg.Telegram.Token != "" {
		bot, err = telegram.New(telegram.BotConfig{
			Token:             cfg.Telegram.Token,
			Debug:             a.verbose,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Limits:            limits,
			SearchTimeout:     cfg.Search.Timeout,
		}, agg, logger, m)
		if err != nil {
			return err
		}
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, telegram bot disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})
	if bot != nil {
		g.Go(func() error {
			return bot.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server exited properly")
	return nil
}
