// Package export writes aggregated records to downloadable files.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kitbuilder587/tubescout/internal/domain"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Exporter serializes records in one file format. Columns and their order
// always follow domain.Columns.
type Exporter interface {
	Format() Format
	ContentType() string
	Write(w io.Writer, records []domain.Record) error
}

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

func ForFormat(f Format) (Exporter, error) {
	switch f {
	case FormatCSV:
		return CSV{}, nil
	case FormatXLSX:
		return XLSX{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// All lists every supported exporter in a stable order.
func All() []Exporter {
	return []Exporter{CSV{}, XLSX{}}
}

// FileName is "{keyword}_results.{ext}" with characters that are unsafe in
// file names replaced by "_".
func FileName(keyword string, f Format) string {
	return sanitize(keyword) + "_results." + string(f)
}

// WriteFile exports records into dir and returns the path written.
func WriteFile(dir, keyword string, e Exporter, records []domain.Record) (string, error) {
	path := filepath.Join(dir, FileName(keyword, e.Format()))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if err := e.Write(file, records); err != nil {
		file.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func sanitize(keyword string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(keyword))

	name = strings.Trim(name, ". ")
	if name == "" {
		return "search"
	}
	return name
}
