package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/kitbuilder587/tubescout/internal/domain"
)

func testQuery() domain.SearchQuery {
	return domain.SearchQuery{
		Keyword:   "go & <rust>",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		ResultCap: 50,
	}
}

func testRecords(n int) []domain.Record {
	records := make([]domain.Record, n)
	for i := range records {
		records[i] = domain.Record{
			PublishedDate: time.Date(2024, 1, 31-i, 0, 0, 0, 0, time.UTC),
			Title:         "Title",
			Author:        "Author",
			URL:           domain.WatchURL("id"),
		}
	}
	return records
}

func TestFormatResults(t *testing.T) {
	records := []domain.Record{{
		PublishedDate: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		Title:         "Tom & Jerry <live>",
		Author:        "Cartoons",
		URL:           "https://www.youtube.com/watch?v=abc",
	}}

	got := FormatResults(testQuery(), records, 10)

	want := "<b>Found 1 videos</b> for «go &amp; &lt;rust&gt;» (2024-01-01 – 2024-01-31)\n\n" +
		"1. <a href=\"https://www.youtube.com/watch?v=abc\">Tom &amp; Jerry &lt;live&gt;</a>\n" +
		"   Cartoons · 2024-01-20\n"
	if got != want {
		t.Errorf("FormatResults() =\n%q\nwant\n%q", got, want)
	}
}

func TestFormatResults_Preview(t *testing.T) {
	tests := []struct {
		name     string
		records  int
		preview  int
		lines    int
		moreLine string
	}{
		{"fewer than preview", 3, 10, 3, ""},
		{"exactly preview", 10, 10, 10, ""},
		{"more than preview", 25, 10, 10, "…and 15 more in the attached files."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatResults(testQuery(), testRecords(tt.records), tt.preview)

			if n := strings.Count(got, "<a href="); n != tt.lines {
				t.Errorf("preview lines = %d, want %d", n, tt.lines)
			}
			if tt.moreLine == "" && strings.Contains(got, "more in the attached files") {
				t.Errorf("unexpected remainder line: %q", got)
			}
			if tt.moreLine != "" && !strings.HasSuffix(got, tt.moreLine) {
				t.Errorf("missing %q in %q", tt.moreLine, got)
			}
		})
	}
}

func TestFormatResults_TruncatesLongTitles(t *testing.T) {
	records := testRecords(1)
	records[0].Title = strings.Repeat("x", 200)

	got := FormatResults(testQuery(), records, 10)

	if strings.Contains(got, strings.Repeat("x", 81)) {
		t.Error("title should be truncated")
	}
	if !strings.Contains(got, "…</a>") {
		t.Errorf("truncated title should end with an ellipsis: %q", got)
	}
}

func TestFormatNoResults(t *testing.T) {
	got := FormatNoResults(testQuery())
	want := "No videos found for «go &amp; &lt;rust&gt;» between 2024-01-01 and 2024-01-31."
	if got != want {
		t.Errorf("FormatNoResults() = %q, want %q", got, want)
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   int // number of parts
	}{
		{"short message", "Hello", 100, 1},
		{"exact length", "Hello", 5, 1},
		{"split needed", "Hello World Test", 7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitMessage(tt.text, tt.maxLen)
			if len(got) != tt.want {
				t.Errorf("SplitMessage() parts = %v, want %v", len(got), tt.want)
			}
		})
	}
}

func TestSplitMessage_PrefersLineBreaks(t *testing.T) {
	got := SplitMessage("line one\nline two words", 14)

	want := []string{"line one\n", "line two words"}
	if len(got) != len(want) {
		t.Fatalf("SplitMessage() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("part %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitMessage_HTMLTags(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
	}{
		{
			name:   "link tag",
			text:   `Text before <a href="https://example.com/very/long/url">link text</a> text after`,
			maxLen: 60,
		},
		{
			name:   "bold tag",
			text:   `Some text <b>bold text here</b> more text`,
			maxLen: 30,
		},
		{
			name:   "multiple tags",
			text:   `<b>Title</b>\n<a href="https://example.com">Link</a>\nMore text here`,
			maxLen: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := SplitMessage(tt.text, tt.maxLen)

			if strings.Join(parts, "") != tt.text {
				t.Errorf("parts do not add up to the original text: %q", parts)
			}
			for i, part := range parts {
				if len(part) > tt.maxLen {
					t.Errorf("Part %d is %d bytes, limit %d", i, len(part), tt.maxLen)
				}

				openCount := strings.Count(part, "<")
				closeCount := strings.Count(part, ">")

				if openCount != closeCount {
					t.Errorf("Part %d has unbalanced tags (open=%d, close=%d): %q",
						i, openCount, closeCount, part)
				}
			}
		})
	}
}

func TestSplitMessage_LongResults(t *testing.T) {
	text := FormatResults(testQuery(), testRecords(200), 200)

	parts := SplitMessage(text, maxMessageLen)
	if len(parts) < 2 {
		t.Fatalf("expected several parts, got %d", len(parts))
	}
	for i, part := range parts {
		if len(part) > maxMessageLen {
			t.Errorf("part %d is %d bytes", i, len(part))
		}
		if strings.Count(part, "<a href") != strings.Count(part, "</a>") {
			t.Errorf("part %d splits a link", i)
		}
	}
}

func TestIsInsideHTMLTag(t *testing.T) {
	tests := []struct {
		text string
		pos  int
		want bool
	}{
		{`<a href="url">text</a>`, 5, true},   // inside <a href="...">
		{`<a href="url">text</a>`, 15, false}, // in "text"
		{`text <b>bold</b>`, 0, false},        // before any tag
		{`text <b>bold</b>`, 6, true},         // inside <b>
		{`text <b>bold</b>`, 9, false},        // in "bold"
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := isInsideHTMLTag(tt.text, tt.pos)
			if got != tt.want {
				t.Errorf("isInsideHTMLTag(%q, %d) = %v, want %v", tt.text, tt.pos, got, tt.want)
			}
		})
	}
}
