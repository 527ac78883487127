package output

import (
	"io"
	"strconv"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/kitbuilder587/tubescout/internal/domain"
)

// DefaultTitleWidth is the display width titles are cut to.
const DefaultTitleWidth = 60

const ellipsis = "…"

// RecordTable renders records as a borderless terminal table, one row per
// record in the order given.
type RecordTable struct {
	w          io.Writer
	titleWidth int
}

func NewRecordTable(w io.Writer, titleWidth int) *RecordTable {
	if titleWidth <= 0 {
		titleWidth = DefaultTitleWidth
	}
	return &RecordTable{w: w, titleWidth: titleWidth}
}

func (t *RecordTable) Render(records []domain.Record) error {
	table := tablewriter.NewTable(t.w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)

	header := append([]string{"#"}, domain.Columns...)
	table.Header(header)

	rows := make([][]string, 0, len(records))
	for i, rec := range records {
		row := rec.Row()
		row[1] = Truncate(row[1], t.titleWidth)
		rows = append(rows, append([]string{strconv.Itoa(i + 1)}, row...))
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// Truncate cuts s to at most width terminal cells, so wide CJK titles line up.
func Truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, ellipsis)
}
