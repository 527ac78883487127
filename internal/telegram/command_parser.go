package telegram

import (
	"strconv"
	"strings"

	"github.com/kitbuilder587/tubescout/internal/domain"
	"github.com/kitbuilder587/tubescout/internal/service"
)

// ParseCommand splits "/cmd@bot args" into ("cmd", "args"). Plain text has no command.
func ParseCommand(text string) (command, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}

	parts := strings.SplitN(text, " ", 2)
	command = strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}
	return command, args
}

// ParseSearchArgs reads "<keyword...> [from to] [limit]" from the right:
// a trailing integer is the limit, then up to two trailing dates are the window
// (a single date is the start). Everything left is the keyword.
func ParseSearchArgs(args string) (service.SearchParams, error) {
	tokens := strings.Fields(args)
	var p service.SearchParams

	if n := len(tokens); n > 1 {
		if limit, ok := parseLimit(tokens[n-1]); ok {
			if limit == 0 {
				return p, domain.ErrInvalidResultCap
			}
			p.Limit = limit
			tokens = tokens[:n-1]
		}
	}

	var dates []string
	for len(tokens) > 1 && len(dates) < 2 && isDate(tokens[len(tokens)-1]) {
		dates = append([]string{tokens[len(tokens)-1]}, dates...)
		tokens = tokens[:len(tokens)-1]
	}
	switch len(dates) {
	case 2:
		p.From, p.To = dates[0], dates[1]
	case 1:
		p.From = dates[0]
	}

	p.Keyword = strings.Join(tokens, " ")
	if p.Keyword == "" {
		return p, domain.ErrEmptyKeyword
	}
	return p, nil
}

func parseLimit(s string) (int, bool) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func isDate(s string) bool {
	_, err := domain.ParseDate(s)
	return err == nil
}
