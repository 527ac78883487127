package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/kitbuilder587/tubescout/internal/search"
)

var ErrMissingAPIKey = errors.New("youtube: API key is required")

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// BreakerFailures is how many consecutive transport failures open the breaker.
	BreakerFailures int
}

// Client implements search.SearchClient on top of the YouTube Data API v3 search.list call.
type Client struct {
	service *ytapi.Service
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	service, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return NewWithService(service, cfg, logger), nil
}

func NewWithService(service *ytapi.Service, cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 5
	}

	failures := uint32(cfg.BreakerFailures)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "youtube-search",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// only platform/transport trouble counts; a bad key or spent quota is not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, search.ErrSearchFailed) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		service: service,
		timeout: cfg.Timeout,
		cb:      cb,
		logger:  logger,
	}
}

func (c *Client) FetchPage(ctx context.Context, req search.PageRequest) (*search.Page, error) {
	if req.PageSize < 1 || req.PageSize > search.MaxPageSize {
		return nil, fmt.Errorf("%w: page size %d out of range 1..%d", search.ErrInvalidRequest, req.PageSize, search.MaxPageSize)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.list(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", search.ErrSearchFailed, err)
		}
		return nil, err
	}

	return out.(*search.Page), nil
}

func (c *Client) list(ctx context.Context, req search.PageRequest) (*search.Page, error) {
	call := c.service.Search.List([]string{"snippet"}).
		Q(req.Query).
		Type("video").
		Order("date").
		MaxResults(int64(req.PageSize)).
		PublishedAfter(req.PublishedAfter.UTC().Format(time.RFC3339Nano)).
		PublishedBefore(req.PublishedBefore.UTC().Format(time.RFC3339Nano))
	if req.PageToken != "" {
		call = call.PageToken(req.PageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		classified := classify(err)
		c.logger.Debug("youtube search.list failed",
			zap.Int("page_size", req.PageSize),
			zap.Bool("has_token", req.PageToken != ""),
			zap.Error(classified),
		)
		return nil, classified
	}

	return toPage(resp), nil
}

func toPage(resp *ytapi.SearchListResponse) *search.Page {
	items := make([]search.RawItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		var raw search.RawItem
		if it.Id != nil {
			raw.VideoID = it.Id.VideoId
		}
		if it.Snippet != nil {
			raw.PublishedAt = it.Snippet.PublishedAt
			raw.Title = it.Snippet.Title
			raw.ChannelTitle = it.Snippet.ChannelTitle
		}
		items = append(items, raw)
	}

	return &search.Page{
		Items:         items,
		NextPageToken: resp.NextPageToken,
	}
}

var (
	credentialReasons = map[string]bool{
		"keyInvalid":          true,
		"keyExpired":          true,
		"forbidden":           true,
		"accessNotConfigured": true,
		"ipRefererBlocked":    true,
		"authError":           true,
	}
	quotaReasons = map[string]bool{
		"quotaExceeded":      true,
		"dailyLimitExceeded": true,
	}
	rateReasons = map[string]bool{
		"rateLimitExceeded":     true,
		"userRateLimitExceeded": true,
	}
)

// classify maps an API error onto the search sentinels, keeping the detail.
func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", search.ErrSearchFailed, err)
	}

	reason := ""
	if len(apiErr.Errors) > 0 {
		reason = apiErr.Errors[0].Reason
	}
	detail := apiErr.Message
	if detail == "" {
		detail = fmt.Sprintf("status %d", apiErr.Code)
	}

	switch {
	case apiErr.Code == http.StatusUnauthorized,
		credentialReasons[reason],
		apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "API key not valid"):
		return fmt.Errorf("%w: %s", search.ErrUnauthorized, detail)
	case quotaReasons[reason]:
		return fmt.Errorf("%w: %s", search.ErrQuotaExceeded, detail)
	case rateReasons[reason], apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", search.ErrRateLimit, detail)
	case apiErr.Code == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", search.ErrInvalidRequest, detail)
	case apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", search.ErrUnauthorized, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", search.ErrSearchFailed, apiErr.Code, detail)
	}
}
