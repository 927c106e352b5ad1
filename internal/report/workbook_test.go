package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2026, 3, 5, 14, 30, 15, 0, time.UTC)

func testIdentity() Identity {
	return Identity{
		Name:        "Acme Traders Ltd",
		TaxID:       "P051234567X",
		Credentials: Credentials{Username: "acme", Password: "s3cret-pass"},
	}
}

func newTestWorkbook(t *testing.T, base string, opts ...Option) *Workbook {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	w, err := OpenOrCreate(testIdentity(), base, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func cellValueAt(t *testing.T, f *excelize.File, sheet, addr string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, addr, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return v
}

func TestAddReportSheetLayout(t *testing.T) {
	w := newTestWorkbook(t, t.TempDir())
	columns := []string{"Period", "Amount", "Status"}
	rows := []Row{
		{"Period": "01/2024", "Amount": "1,234.50", "Status": "Open"},
		{"Period": "02/2024", "Amount": "(20.00)", "Status": "Closed"},
	}

	sheet, err := w.AddReportSheet("Liabilities", columns, rows)
	require.NoError(t, err)
	assert.Equal(t, "Liabilities", sheet)
	assert.Equal(t, []string{"Liabilities"}, w.file.GetSheetList(), "default sheet is removed")

	f := w.file
	assert.Equal(t, "Liabilities - Generated 05/03/2026 14:30:15", cellValueAt(t, f, sheet, "A1"))
	assert.Equal(t, "Company:", cellValueAt(t, f, sheet, "A3"))
	assert.Equal(t, "Acme Traders Ltd", cellValueAt(t, f, sheet, "B3"))
	assert.Equal(t, "Tax ID:", cellValueAt(t, f, sheet, "C3"))
	assert.Equal(t, "P051234567X", cellValueAt(t, f, sheet, "D3"))
	assert.Equal(t, "Period", cellValueAt(t, f, sheet, "A5"))
	assert.Equal(t, "Status", cellValueAt(t, f, sheet, "C5"))

	assert.Equal(t, "01/2024", cellValueAt(t, f, sheet, "A6"))
	assert.Equal(t, "1234.5", cellValueAt(t, f, sheet, "B6"))
	assert.Equal(t, "-20", cellValueAt(t, f, sheet, "B7"))
	assert.Equal(t, "Closed", cellValueAt(t, f, sheet, "C7"))
	assert.Equal(t, "", cellValueAt(t, f, sheet, "A8"))

	typ, err := f.GetCellType(sheet, "A6")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeSharedString, typ, "period stays text")
	typ, err = f.GetCellType(sheet, "B6")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ, "amount is numeric")

	styleID, err := f.GetCellStyle(sheet, "B6")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	assert.Equal(t, numFmtAmount, style.NumFmt)

	merged, err := f.GetMergeCells(sheet)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "A1", merged[0].GetStartAxis())
	assert.Equal(t, "C1", merged[0].GetEndAxis())

	panes, err := f.GetPanes(sheet)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, headerRow, panes.YSplit)
}

func TestAddReportSheetNeverWritesCredentials(t *testing.T) {
	w := newTestWorkbook(t, t.TempDir())
	_, err := w.AddReportSheet("Ledger", []string{"Ref"}, []Row{{"Ref": "A1"}})
	require.NoError(t, err)

	grid, err := w.file.GetRows("Ledger")
	require.NoError(t, err)
	for _, row := range grid {
		for _, c := range row {
			assert.NotContains(t, c, "s3cret-pass")
		}
	}
}

func TestAddReportSheetReplacesSameName(t *testing.T) {
	w := newTestWorkbook(t, t.TempDir())
	cols := []string{"Ref"}

	_, err := w.AddReportSheet("Ledger", cols, []Row{{"Ref": "a"}, {"Ref": "b"}})
	require.NoError(t, err)
	_, err = w.AddReportSheet("Returns", cols, []Row{{"Ref": "r"}})
	require.NoError(t, err)
	_, err = w.AddReportSheet("Ledger", cols, []Row{{"Ref": "c"}})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Ledger", "Returns"}, w.SheetNames())
	assert.Equal(t, "c", cellValueAt(t, w.file, "Ledger", "A6"))
	assert.Equal(t, "", cellValueAt(t, w.file, "Ledger", "A7"), "no rows from the first write survive")
}

func TestAddReportSheetReplacesOnlySheet(t *testing.T) {
	w := newTestWorkbook(t, t.TempDir())
	cols := []string{"Ref"}

	_, err := w.AddReportSheet("Ledger", cols, []Row{{"Ref": "a"}})
	require.NoError(t, err)
	_, err = w.AddReportSheet("Ledger", cols, []Row{{"Ref": "b"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"Ledger"}, w.file.GetSheetList())
	assert.Equal(t, "b", cellValueAt(t, w.file, "Ledger", "A6"))
}

func TestAddReportSheetWithoutRowsWritesPlaceholder(t *testing.T) {
	w := newTestWorkbook(t, t.TempDir())

	sheet, err := w.AddReportSheet("Refunds", []string{"Ref", "Amount", "Date"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Ref", cellValueAt(t, w.file, sheet, "A5"))
	assert.Equal(t, DefaultPlaceholder, cellValueAt(t, w.file, sheet, "A6"))
	merged, err := w.file.GetMergeCells(sheet)
	require.NoError(t, err)
	var axes []string
	for _, m := range merged {
		axes = append(axes, m.GetStartAxis()+":"+m.GetEndAxis())
	}
	assert.Contains(t, axes, "A6:C6")
}

func TestAddPlaceholderSheetMessage(t *testing.T) {
	w := newTestWorkbook(t, t.TempDir(), WithPlaceholder("Nothing here"))

	_, err := w.AddReportSheet("Empty", []string{"Ref"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Nothing here", cellValueAt(t, w.file, "Empty", "A6"))

	_, err = w.AddPlaceholderSheet("Broken", []string{"Ref"}, "Extraction failed: timeout")
	require.NoError(t, err)
	assert.Equal(t, "Extraction failed: timeout", cellValueAt(t, w.file, "Broken", "A6"))
}

func TestAddReportSheetRequiresColumns(t *testing.T) {
	w := newTestWorkbook(t, t.TempDir())
	_, err := w.AddReportSheet("Ledger", nil, []Row{{"x": 1}})
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestColumnWidthsClamp(t *testing.T) {
	long := strings.Repeat("d", 45)
	rows := []Row{{"ID": "1", "Description": long, "Amount": "1,234.50"}}
	cols := []string{"ID", "Description", "Amount"}

	tests := []struct {
		name     string
		min, max float64
		want     float64
	}{
		{"capped at max", 10, 40, 40},
		{"fits under max", 10, 60, 47},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := newTestWorkbook(t, t.TempDir(), WithColumnWidths(tc.min, tc.max))
			sheet, err := w.AddReportSheet("Ledger", cols, rows)
			require.NoError(t, err)

			got, err := w.file.GetColWidth(sheet, "B")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			id, err := w.file.GetColWidth(sheet, "A")
			require.NoError(t, err)
			assert.Equal(t, tc.min, id, "short columns get the minimum")

			amount, err := w.file.GetColWidth(sheet, "C")
			require.NoError(t, err)
			assert.Equal(t, 10.0, amount, "1,234.50 plus padding")
		})
	}
}

func TestColumnWidthDefaultMax(t *testing.T) {
	w := newTestWorkbook(t, t.TempDir())
	sheet, err := w.AddReportSheet("Ledger", []string{"Notes"}, []Row{{"Notes": strings.Repeat("n", 60)}})
	require.NoError(t, err)

	got, err := w.file.GetColWidth(sheet, "A")
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultMaxWidth), got)
}

func TestSaveAndReopen(t *testing.T) {
	base := t.TempDir()
	w := newTestWorkbook(t, base)
	_, err := w.AddReportSheet("Liabilities", []string{"Ref"}, []Row{{"Ref": "L1"}})
	require.NoError(t, err)

	res, err := w.Save()
	require.NoError(t, err)
	assert.Equal(t, WorkbookPath(base, testIdentity(), fixedNow), res.Path)
	assert.Equal(t, []string{"Liabilities"}, res.SheetNames)

	entries, err := os.ReadDir(filepath.Dir(res.Path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are renamed away")
	assert.Equal(t, filepath.Base(res.Path), entries[0].Name())

	again := newTestWorkbook(t, base)
	assert.Equal(t, []string{"Liabilities"}, again.SheetNames())
	_, err = again.AddReportSheet("Ledger", []string{"Ref"}, []Row{{"Ref": "G1"}})
	require.NoError(t, err)
	res, err = again.Save()
	require.NoError(t, err)
	assert.Equal(t, []string{"Liabilities", "Ledger"}, res.SheetNames)

	f, err := excelize.OpenFile(res.Path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Liabilities", "Ledger"}, f.GetSheetList())
	v, err := f.GetCellValue("Liabilities", "A6")
	require.NoError(t, err)
	assert.Equal(t, "L1", v)
}

func TestSaveIsRepeatable(t *testing.T) {
	w := newTestWorkbook(t, t.TempDir())
	_, err := w.AddReportSheet("One", []string{"Ref"}, []Row{{"Ref": "1"}})
	require.NoError(t, err)
	_, err = w.Save()
	require.NoError(t, err)

	_, err = w.AddReportSheet("Two", []string{"Ref"}, []Row{{"Ref": "2"}})
	require.NoError(t, err)
	res, err := w.Save()
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two"}, res.SheetNames)
}

func TestOpenOrCreateCorruptFile(t *testing.T) {
	base := t.TempDir()
	path := WorkbookPath(base, testIdentity(), fixedNow)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))

	_, err := OpenOrCreate(testIdentity(), base, WithClock(func() time.Time { return fixedNow }))
	require.Error(t, err)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "open", ioErr.Op)
	assert.Equal(t, path, ioErr.Path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not a workbook", string(data), "unreadable file is left untouched")
}
