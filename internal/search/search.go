package search

import (
	"context"
	"errors"
	"time"
)

// MaxPageSize is the largest page the platform serves per request.
const MaxPageSize = 50

var (
	ErrUnauthorized   = errors.New("invalid API key")
	ErrQuotaExceeded  = errors.New("quota exceeded")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrInvalidRequest = errors.New("invalid request parameters")
	ErrSearchFailed   = errors.New("search request failed")
)

// SearchClient fetches one page of keyword results inside a published-at window.
type SearchClient interface {
	FetchPage(ctx context.Context, req PageRequest) (*Page, error)
}

type PageRequest struct {
	Query           string
	PublishedAfter  time.Time
	PublishedBefore time.Time
	PageSize        int
	// PageToken is empty for the first page.
	PageToken string
}

type Page struct {
	Items []RawItem
	// NextPageToken is empty when there are no more results.
	NextPageToken string
}

// RawItem is a search hit as the platform reports it. Fields are copied
// as-is; validation happens when the item is normalized.
type RawItem struct {
	VideoID      string
	PublishedAt  string
	Title        string
	ChannelTitle string
}
