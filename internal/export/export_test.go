package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kitbuilder587/tubescout/internal/domain"
)

func sampleRecords() []domain.Record {
	return []domain.Record{
		{
			PublishedDate: time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC),
			Title:         `Go "generics", explained`,
			Author:        "Gopher TV",
			URL:           domain.WatchURL("abc"),
		},
		{
			PublishedDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Title:         "Goの並行処理",
			Author:        "東京 Gophers",
			URL:           domain.WatchURL("def"),
		},
	}
}

func TestCSV_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV{}.Write(&buf, sampleRecords()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"), "missing BOM")

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"published_date", "title", "author", "url"}, rows[0])
	assert.Equal(t, []string{"2024-01-30", `Go "generics", explained`, "Gopher TV", "https://www.youtube.com/watch?v=abc"}, rows[1])
	assert.Equal(t, []string{"2024-01-02", "Goの並行処理", "東京 Gophers", "https://www.youtube.com/watch?v=def"}, rows[2])
}

func TestCSV_WriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV{}.Write(&buf, nil))
	assert.Equal(t, "\ufeffpublished_date,title,author,url\n", buf.String())
}

func TestXLSX_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSX{}.Write(&buf, sampleRecords()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, domain.Columns, rows[0])
	assert.Equal(t, sampleRecords()[0].Row(), rows[1])
	assert.Equal(t, sampleRecords()[1].Row(), rows[2])
}

func TestXLSX_WriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSX{}.Write(&buf, []domain.Record{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.Columns, rows[0])
}

func TestFileName(t *testing.T) {
	tests := []struct {
		keyword string
		format  Format
		want    string
	}{
		{"golang", FormatCSV, "golang_results.csv"},
		{"go lang", FormatXLSX, "go lang_results.xlsx"},
		{"  padded  ", FormatCSV, "padded_results.csv"},
		{"a/b\\c:d", FormatCSV, "a_b_c_d_results.csv"},
		{`what? "why" <how>|*`, FormatCSV, "what_ _why_ _how____results.csv"},
		{"../etc", FormatCSV, "_etc_results.csv"},
		{"日本語", FormatXLSX, "日本語_results.xlsx"},
		{"", FormatCSV, "search_results.csv"},
		{"...", FormatCSV, "search_results.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.keyword, tt.format))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestForFormat(t *testing.T) {
	for _, e := range All() {
		got, err := ForFormat(e.Format())
		require.NoError(t, err)
		assert.Equal(t, e.Format(), got.Format())
		assert.NotEmpty(t, got.ContentType())
	}

	_, err := ForFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFile(dir, "go/lang", CSV{}, sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "go_lang_results.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\ufeffpublished_date")))
}

func TestWriteFile_MissingDir(t *testing.T) {
	_, err := WriteFile(filepath.Join(t.TempDir(), "missing"), "go", CSV{}, nil)
	assert.Error(t, err)
}
