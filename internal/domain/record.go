package domain

import "time"

const (
	// DateLayout is how published dates are rendered and parsed everywhere.
	DateLayout = "2006-01-02"

	watchURLPrefix = "https://www.youtube.com/watch?v="
)

// Columns is the fixed export/display column order.
var Columns = []string{"published_date", "title", "author", "url"}

// Record is one normalized search hit.
type Record struct {
	PublishedDate time.Time
	Title         string
	Author        string
	URL           string
}

// Row returns the record's cells in Columns order.
func (r Record) Row() []string {
	return []string{
		r.PublishedDate.Format(DateLayout),
		r.Title,
		r.Author,
		r.URL,
	}
}

// WatchURL builds the canonical video URL for a video id.
func WatchURL(videoID string) string {
	return watchURLPrefix + videoID
}
