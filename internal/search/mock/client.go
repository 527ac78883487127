package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kitbuilder587/tubescout/internal/search"
)

// Client serves scripted pages in order and records every request.
// Calls past the last scripted page get an empty final page.
type Client struct {
	Pages   []search.Page
	Error   error
	ErrorAt int // 1-based call that fails with Error; 0 fails every call
	Delay   time.Duration
	Handler func(call int, req search.PageRequest) (*search.Page, error)

	CallCount   int
	LastRequest search.PageRequest
	AllRequests []search.PageRequest

	mu sync.Mutex
}

func New() *Client {
	return &Client{}
}

func (c *Client) WithPages(pages ...search.Page) *Client {
	c.Pages = pages
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithErrorAt(call int, err error) *Client {
	c.Error = err
	c.ErrorAt = call
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

// WithHandler replaces the scripted pages with a function of the call number.
func (c *Client) WithHandler(h func(call int, req search.PageRequest) (*search.Page, error)) *Client {
	c.Handler = h
	return c
}

func (c *Client) FetchPage(ctx context.Context, req search.PageRequest) (*search.Page, error) {
	c.mu.Lock()
	c.CallCount++
	call := c.CallCount
	c.LastRequest = req
	c.AllRequests = append(c.AllRequests, req)
	delay := c.Delay
	err := c.Error
	errorAt := c.ErrorAt
	handler := c.Handler
	pages := c.Pages
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil && (errorAt == 0 || errorAt == call) {
		return nil, err
	}

	if handler != nil {
		return handler(call, req)
	}

	if call > len(pages) {
		return &search.Page{}, nil
	}
	page := pages[call-1]
	return &page, nil
}

// Requests returns a copy of every request seen so far.
func (c *Client) Requests() []search.PageRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]search.PageRequest, len(c.AllRequests))
	copy(out, c.AllRequests)
	return out
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastRequest = search.PageRequest{}
	c.AllRequests = nil
}

// Items builds n well-formed items with ids "<prefix>-<i>", newest first,
// one day apart starting at newest.
func Items(prefix string, n int, newest time.Time) []search.RawItem {
	items := make([]search.RawItem, n)
	for i := range items {
		id := fmt.Sprintf("%s-%d", prefix, i)
		items[i] = search.RawItem{
			VideoID:      id,
			PublishedAt:  newest.AddDate(0, 0, -i).UTC().Format(time.RFC3339),
			Title:        "Video " + id,
			ChannelTitle: "Channel " + prefix,
		}
	}
	return items
}
