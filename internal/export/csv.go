package export

import (
	"encoding/csv"
	"io"

	"github.com/kitbuilder587/tubescout/internal/domain"
)

// utf8BOM lets spreadsheet apps detect the encoding of non-ASCII titles.
const utf8BOM = "\ufeff"

type CSV struct{}

func (CSV) Format() Format { return FormatCSV }

func (CSV) ContentType() string { return "text/csv; charset=utf-8" }

func (CSV) Write(w io.Writer, records []domain.Record) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(domain.Columns); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(rec.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
