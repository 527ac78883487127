package service

import (
	"fmt"
	"time"

	"github.com/kitbuilder587/tubescout/internal/domain"
)

var ErrInvalidDate = fmt.Errorf("%w: dates must be YYYY-MM-DD", domain.ErrValidation)

// SearchParams is what a front end collects from its user. Empty dates and a
// zero limit fall back to the defaults.
type SearchParams struct {
	Keyword string
	From    string
	To      string
	Limit   int
}

type QueryLimits struct {
	DefaultResults int
	MaxResults     int
}

// BuildQuery applies defaults and front-end bounds and returns a query that
// is ready to aggregate. Without dates the window is the last month up to today (UTC);
// with only one date the other is filled in relative to it.
func BuildQuery(p SearchParams, limits QueryLimits, now time.Time) (domain.SearchQuery, error) {
	defStart, defEnd := domain.DefaultDates(now)

	end := defEnd
	if p.To != "" {
		t, err := domain.ParseDate(p.To)
		if err != nil {
			return domain.SearchQuery{}, fmt.Errorf("%w: to %q", ErrInvalidDate, p.To)
		}
		end = t
	}

	start := defStart
	switch {
	case p.From != "":
		t, err := domain.ParseDate(p.From)
		if err != nil {
			return domain.SearchQuery{}, fmt.Errorf("%w: from %q", ErrInvalidDate, p.From)
		}
		start = t
	case p.To != "":
		start = end.AddDate(0, -1, 0)
	}

	limit := p.Limit
	if limit == 0 {
		limit = limits.DefaultResults
	}
	if limit == 0 {
		limit = domain.DefaultResultCap
	}

	q := domain.SearchQuery{
		Keyword:   p.Keyword,
		StartDate: start,
		EndDate:   end,
		ResultCap: limit,
	}
	q.Sanitize()

	maxResults := limits.MaxResults
	if maxResults == 0 {
		maxResults = domain.MaxResultCap
	}
	if err := q.ValidateCap(maxResults); err != nil {
		return domain.SearchQuery{}, err
	}
	return q, nil
}
