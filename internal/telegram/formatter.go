package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/kitbuilder587/tubescout/internal/domain"
	"github.com/kitbuilder587/tubescout/internal/output"
)

// telegram message limit
const maxMessageLen = 4096

const previewTitleWidth = 80

// FormatResults renders the summary line and the first preview records as HTML.
func FormatResults(q domain.SearchQuery, records []domain.Record, preview int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Found %d videos</b> for «%s» (%s – %s)\n\n",
		len(records),
		html.EscapeString(q.Keyword),
		q.StartDate.Format(domain.DateLayout),
		q.EndDate.Format(domain.DateLayout),
	))

	shown := min(preview, len(records))
	for i, rec := range records[:shown] {
		sb.WriteString(fmt.Sprintf("%d. <a href=\"%s\">%s</a>\n   %s · %s\n",
			i+1,
			html.EscapeString(rec.URL),
			html.EscapeString(output.Truncate(rec.Title, previewTitleWidth)),
			html.EscapeString(rec.Author),
			rec.PublishedDate.Format(domain.DateLayout),
		))
	}

	if rest := len(records) - shown; rest > 0 {
		sb.WriteString(fmt.Sprintf("\n…and %d more in the attached files.", rest))
	}

	return sb.String()
}

func FormatNoResults(q domain.SearchQuery) string {
	return fmt.Sprintf("No videos found for «%s» between %s and %s.",
		html.EscapeString(q.Keyword),
		q.StartDate.Format(domain.DateLayout),
		q.EndDate.Format(domain.DateLayout),
	)
}

func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

// findSafeSplitPoint prefers a line break, then a space, never inside a tag.
func findSafeSplitPoint(text string, maxLen int) int {
	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) || isInsideHTMLTag(text, i) {
			continue
		}
		if text[i] == '\n' {
			return i + 1
		}
	}

	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) || isInsideHTMLTag(text, i) {
			continue
		}
		if text[i] == ' ' {
			return i + 1
		}
	}

	if maxLen < len(text) && isInsideHTMLTag(text, maxLen) {
		for i := maxLen; i >= 0; i-- {
			if text[i] == '<' {
				if i > 0 {
					return i
				}
				break
			}
		}
	}

	return maxLen
}

func isInsideHTMLTag(text string, pos int) bool {
	if pos >= len(text) || pos < 0 {
		return false
	}
	for i := pos; i >= 0; i-- {
		if text[i] == '>' {
			return false
		}
		if text[i] == '<' {
			return true
		}
	}
	return false
}
