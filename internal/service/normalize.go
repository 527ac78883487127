package service

import (
	"fmt"
	"time"

	"github.com/kitbuilder587/tubescout/internal/domain"
	"github.com/kitbuilder587/tubescout/internal/search"
)

// Normalize maps a raw search hit onto a Record. Every field is required;
// a missing one or an unparsable timestamp is a malformed response.
func Normalize(item search.RawItem) (domain.Record, error) {
	switch {
	case item.VideoID == "":
		return domain.Record{}, fmt.Errorf("%w: missing video id", domain.ErrMalformedResponse)
	case item.PublishedAt == "":
		return domain.Record{}, fmt.Errorf("%w: video %s: missing publishedAt", domain.ErrMalformedResponse, item.VideoID)
	case item.Title == "":
		return domain.Record{}, fmt.Errorf("%w: video %s: missing title", domain.ErrMalformedResponse, item.VideoID)
	case item.ChannelTitle == "":
		return domain.Record{}, fmt.Errorf("%w: video %s: missing channelTitle", domain.ErrMalformedResponse, item.VideoID)
	}

	published, err := time.Parse(time.RFC3339, item.PublishedAt)
	if err != nil {
		return domain.Record{}, fmt.Errorf("%w: video %s: publishedAt %q: %v", domain.ErrMalformedResponse, item.VideoID, item.PublishedAt, err)
	}
	y, m, d := published.UTC().Date()

	return domain.Record{
		PublishedDate: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Title:         item.Title,
		Author:        item.ChannelTitle,
		URL:           domain.WatchURL(item.VideoID),
	}, nil
}
