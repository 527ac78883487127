package output

import (
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/kitbuilder587/tubescout/internal/config"
	"github.com/kitbuilder587/tubescout/internal/domain"
)

const (
	ExitSuccess    = 0
	ExitGeneral    = 1
	ExitUsageError = 2
)

// CLIError is an error with user-facing context.
type CLIError struct {
	Summary    string
	Detail     string
	Suggestion string
	ExitCode   int
}

func (e *CLIError) Error() string {
	return e.Summary
}

// FromError turns any command failure into a CLIError with a hint that fits its kind.
func FromError(err error) *CLIError {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	e := &CLIError{Summary: "Search failed", Detail: err.Error(), ExitCode: ExitGeneral}

	if errors.Is(err, config.ErrMissingAPIKey) {
		e.Summary = "YouTube API key is not configured"
		e.Suggestion = "Set YOUTUBE_API_KEY in the environment or .env, or youtube_api_key in the secrets file"
		return e
	}

	switch domain.KindOf(err) {
	case domain.KindValidation:
		e.Summary = "Invalid search parameters"
		e.Suggestion = fmt.Sprintf("Use a non-empty keyword, dates as YYYY-MM-DD with from <= to, and a limit between 1 and %d", domain.MaxResultCap)
		e.ExitCode = ExitUsageError
	case domain.KindInvalidCredential:
		e.Summary = "Invalid API key"
		e.Suggestion = "Check your YOUTUBE_API_KEY"
	case domain.KindQuotaExceeded:
		e.Summary = "YouTube API quota exceeded"
		e.Suggestion = "The daily quota may be exhausted; try again later"
	case domain.KindTransport:
		e.Summary = "Could not reach the YouTube API"
		e.Suggestion = "Check your network connection and try again"
	case domain.KindMalformedResponse, domain.KindProtocolAnomaly:
		e.Summary = "Unexpected response from the YouTube API"
		e.Suggestion = "Try again; if it keeps happening, narrow the date range"
	case domain.KindCanceled:
		e.Summary = "Search canceled"
		e.Suggestion = "Increase SEARCH_TIMEOUT_SEC for large result limits"
	}
	return e
}

// FormatError prints a structured error message to stderr.
func (p *Printer) FormatError(e *CLIError) {
	if p.useColors {
		color.New(color.FgRed, color.Bold).Fprintf(p.err, "Error: %s\n", e.Summary)
		if e.Detail != "" {
			fmt.Fprintf(p.err, "  Cause: %s\n", e.Detail)
		}
		if e.Suggestion != "" {
			color.New(color.FgCyan).Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
		}
	} else {
		fmt.Fprintf(p.err, "[ERROR] %s\n", e.Summary)
		if e.Detail != "" {
			fmt.Fprintf(p.err, "  Cause: %s\n", e.Detail)
		}
		if e.Suggestion != "" {
			fmt.Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
		}
	}
}
