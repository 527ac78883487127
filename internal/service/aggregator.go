package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/tubescout/internal/domain"
	"github.com/kitbuilder587/tubescout/internal/metrics"
	"github.com/kitbuilder587/tubescout/internal/search"
)

// Aggregator turns one SearchQuery into an ordered, capped list of records.
// It either returns every record up to the cap or an *domain.AggregateError
// and no records.
type Aggregator interface {
	Aggregate(ctx context.Context, q domain.SearchQuery) ([]domain.Record, error)
}

type AggregatorConfig struct {
	// PageSize is the largest page requested; clamped to search.MaxPageSize.
	PageSize int
	// MaxEmptyPages is how many consecutive empty pages that still carry a
	// continuation token are tolerated before giving up.
	MaxEmptyPages int
}

type AggregatorDeps struct {
	Search  search.SearchClient
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Config  AggregatorConfig
}

type aggregator struct {
	search  search.SearchClient
	logger  *zap.Logger
	metrics *metrics.Metrics
	config  AggregatorConfig
}

func NewAggregator(deps AggregatorDeps) Aggregator {
	if deps.Config.PageSize <= 0 || deps.Config.PageSize > search.MaxPageSize {
		deps.Config.PageSize = search.MaxPageSize
	}
	if deps.Config.MaxEmptyPages <= 0 {
		deps.Config.MaxEmptyPages = 3
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &aggregator{
		search:  deps.Search,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		config:  deps.Config,
	}
}

func (s *aggregator) Aggregate(ctx context.Context, q domain.SearchQuery) ([]domain.Record, error) {
	startTime := time.Now()

	records, err := s.aggregate(ctx, q)
	if err != nil {
		kind := domain.KindOf(err)
		s.logger.Warn("aggregation failed",
			zap.String("keyword", q.Keyword),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.RecordAggregation(string(kind), 0, time.Since(startTime))
		}
		return nil, err
	}

	s.logger.Info("aggregation finished",
		zap.String("keyword", q.Keyword),
		zap.Int("records", len(records)),
		zap.Int("result_cap", q.ResultCap),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	if s.metrics != nil {
		s.metrics.RecordAggregation("success", len(records), time.Since(startTime))
	}

	return records, nil
}

func (s *aggregator) aggregate(ctx context.Context, q domain.SearchQuery) ([]domain.Record, error) {
	q.Sanitize()
	if err := q.Validate(); err != nil {
		return nil, &domain.AggregateError{Kind: domain.KindValidation, Err: err}
	}

	window := q.Window()

	s.logger.Info("aggregation started",
		zap.String("keyword", q.Keyword),
		zap.Time("from", window.From),
		zap.Time("to", window.To),
		zap.Int("result_cap", q.ResultCap),
	)

	records := make([]domain.Record, 0, min(q.ResultCap, s.config.PageSize))
	token := ""
	emptyPages := 0

	for page := 1; len(records) < q.ResultCap; page++ {
		if err := ctx.Err(); err != nil {
			return nil, &domain.AggregateError{Kind: domain.KindCanceled, Page: page, Err: err}
		}

		req := search.PageRequest{
			Query:           q.Keyword,
			PublishedAfter:  window.From,
			PublishedBefore: window.To,
			PageSize:        pageSize(q.ResultCap, len(records), s.config.PageSize),
			PageToken:       token,
		}

		res, err := s.fetch(ctx, req)
		if err != nil {
			return nil, s.classifyFetchError(ctx, page, err)
		}
		if res == nil {
			return nil, &domain.AggregateError{
				Kind: domain.KindMalformedResponse,
				Page: page,
				Err:  fmt.Errorf("%w: empty page response", domain.ErrMalformedResponse),
			}
		}

		for i, item := range res.Items {
			rec, err := Normalize(item)
			if err != nil {
				return nil, &domain.AggregateError{
					Kind: domain.KindMalformedResponse,
					Page: page,
					Err:  fmt.Errorf("item %d: %w", i, err),
				}
			}
			records = append(records, rec)
		}

		s.logger.Debug("page fetched",
			zap.Int("page", page),
			zap.Int("page_size", req.PageSize),
			zap.Int("items", len(res.Items)),
			zap.Int("total", len(records)),
			zap.Bool("has_next", res.NextPageToken != ""),
		)

		if res.NextPageToken == "" {
			break
		}

		if len(res.Items) == 0 {
			emptyPages++
			if emptyPages >= s.config.MaxEmptyPages {
				return nil, &domain.AggregateError{
					Kind: domain.KindProtocolAnomaly,
					Page: page,
					Err:  fmt.Errorf("%w: %d consecutive empty pages with a continuation token", domain.ErrProtocolAnomaly, emptyPages),
				}
			}
		} else {
			emptyPages = 0
		}

		token = res.NextPageToken
	}

	if len(records) > q.ResultCap {
		records = records[:q.ResultCap]
	}

	return records, nil
}

func (s *aggregator) fetch(ctx context.Context, req search.PageRequest) (*search.Page, error) {
	fetchStart := time.Now()
	res, err := s.search.FetchPage(ctx, req)
	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordPageFetch(status, time.Since(fetchStart))
	}
	return res, err
}

func (s *aggregator) classifyFetchError(ctx context.Context, page int, err error) *domain.AggregateError {
	kind := domain.KindTransport
	switch {
	case ctx.Err() != nil:
		kind = domain.KindCanceled
	case errors.Is(err, search.ErrUnauthorized):
		kind = domain.KindInvalidCredential
	case errors.Is(err, search.ErrQuotaExceeded), errors.Is(err, search.ErrRateLimit):
		kind = domain.KindQuotaExceeded
	}
	return &domain.AggregateError{Kind: kind, Page: page, Err: err}
}

// pageSize never exceeds the platform limit nor what is still needed.
func pageSize(resultCap, have, limit int) int {
	return min(limit, resultCap-have)
}
