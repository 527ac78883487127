package domain

import (
	"strings"
	"time"
)

// DefaultResultCap and MaxResultCap bound what the front ends accept.
// The aggregator itself only requires a positive cap.
const (
	DefaultResultCap = 50
	MaxResultCap     = 1000
)

// SearchQuery is one logical search: keyword, inclusive date window and result cap.
// Only the calendar date of StartDate and EndDate is used; their location is ignored.
type SearchQuery struct {
	Keyword   string
	StartDate time.Time
	EndDate   time.Time
	ResultCap int
}

func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Keyword) == "" {
		return ErrEmptyKeyword
	}

	if q.ResultCap < 1 {
		return ErrInvalidResultCap
	}

	if dateOf(q.StartDate).After(dateOf(q.EndDate)) {
		return ErrInvalidDateRange
	}

	return nil
}

// ValidateCap additionally rejects caps above max. Front ends call it with
// their configured limit.
func (q *SearchQuery) ValidateCap(max int) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if max > 0 && q.ResultCap > max {
		return ErrResultCapTooLarge
	}
	return nil
}

func (q *SearchQuery) Sanitize() {
	q.Keyword = strings.Join(strings.Fields(q.Keyword), " ")
}

// Window returns the UTC instants covering StartDate 00:00 through EndDate 23:59:59.999999.
func (q SearchQuery) Window() TimeWindow {
	from := dateOf(q.StartDate)
	to := dateOf(q.EndDate).Add(24*time.Hour - time.Microsecond)
	return TimeWindow{From: from, To: to}
}

// TimeWindow is the published-at range sent with every page request.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// DefaultDates returns the window used when a caller gives none:
// one month back from today (UTC).
func DefaultDates(now time.Time) (start, end time.Time) {
	end = dateOf(now.UTC())
	start = end.AddDate(0, -1, 0)
	return start, end
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
