package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kitbuilder587/tubescout/internal/domain"
	"github.com/kitbuilder587/tubescout/internal/export"
	"github.com/kitbuilder587/tubescout/internal/output"
	"github.com/kitbuilder587/tubescout/internal/service"
)

type searchOptions struct {
	from       string
	to         string
	limit      int
	csv        bool
	xlsx       bool
	outDir     string
	titleWidth int
}

func newSearchCmd(a *app) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search KEYWORD...",
		Short: "Search videos and print or export them",
		Long: `Search YouTube for videos matching KEYWORD published between --from and --to
(inclusive, UTC). Without dates the last month up to today is searched.

Results are printed newest first. --csv and --xlsx also write
"<keyword>_results.csv" / "<keyword>_results.xlsx" into --out-dir.

Examples:
  tubescout search golang
  tubescout search golang --from 2024-01-01 --to 2024-01-31
  tubescout search "machine learning" --limit 300 --csv --xlsx --out-dir exports`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
				return usageError(err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("limit") && opts.limit < 1 {
				return domain.ErrInvalidResultCap
			}
			return a.runSearch(cmd.Context(), strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "start date YYYY-MM-DD (default: one month before --to)")
	cmd.Flags().StringVar(&opts.to, "to", "", "end date YYYY-MM-DD (default: today)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, fmt.Sprintf("maximum number of videos (default %d)", domain.DefaultResultCap))
	cmd.Flags().BoolVar(&opts.csv, "csv", false, "write a CSV file")
	cmd.Flags().BoolVar(&opts.xlsx, "xlsx", false, "write an XLSX file")
	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", ".", "directory for export files")
	cmd.Flags().IntVar(&opts.titleWidth, "title-width", output.DefaultTitleWidth, "title column width in the table")

	return cmd
}

func (a *app) runSearch(ctx context.Context, keyword string, opts *searchOptions) error {
	cfg, logger, err := a.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	q, err := service.BuildQuery(service.SearchParams{
		Keyword: keyword,
		From:    opts.from,
		To:      opts.to,
		Limit:   opts.limit,
	}, service.QueryLimits{
		DefaultResults: cfg.Search.DefaultResults,
		MaxResults:     cfg.Search.MaxResults,
	}, a.now())
	if err != nil {
		return err
	}

	client, err := a.newClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	agg := service.NewAggregator(service.AggregatorDeps{
		Search: client,
		Logger: logger,
		Config: service.AggregatorConfig{MaxEmptyPages: cfg.Search.MaxEmptyPages},
	})

	if cfg.Search.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Search.Timeout)
		defer cancel()
	}

	printer := a.printer()
	printer.Info("Searching %q from %s to %s (up to %d videos)...",
		q.Keyword, q.StartDate.Format(domain.DateLayout), q.EndDate.Format(domain.DateLayout), q.ResultCap)

	records, err := agg.Aggregate(ctx, q)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		printer.Warning("No videos found for %q between %s and %s",
			q.Keyword, q.StartDate.Format(domain.DateLayout), q.EndDate.Format(domain.DateLayout))
		return nil
	}

	printer.Header(fmt.Sprintf("Found %d videos", len(records)))
	if err := output.NewRecordTable(printer.Out(), opts.titleWidth).Render(records); err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	var formats []export.Format
	if opts.csv {
		formats = append(formats, export.FormatCSV)
	}
	if opts.xlsx {
		formats = append(formats, export.FormatXLSX)
	}
	if len(formats) == 0 {
		return nil
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, f := range formats {
		e, err := export.ForFormat(f)
		if err != nil {
			return err
		}
		path, err := export.WriteFile(opts.outDir, q.Keyword, e, records)
		if err != nil {
			return err
		}
		logger.Debug("export written", zap.String("path", path), zap.Int("records", len(records)))
		printer.Success("Saved %s", path)
	}
	return nil
}
