package report

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Fixed sheet layout rows.
const (
	titleRow    = 1
	identityRow = 3
	headerRow   = 5
	firstData   = 6

	// numFmtAmount is the builtin "#,##0.00" number format.
	numFmtAmount = 4

	titleStampLayout = "02/01/2006 15:04:05"
	headerFill       = "D9E1F2"
	titleFill        = "1F4E78"
)

type styleSet struct {
	title       int
	label       int
	header      int
	amount      int
	text        int
	placeholder int
}

func (w *Workbook) ensureStyles() (*styleSet, error) {
	if w.styles != nil {
		return w.styles, nil
	}
	thin := []excelize.Border{
		{Type: "left", Color: "A6A6A6", Style: 1},
		{Type: "right", Color: "A6A6A6", Style: 1},
		{Type: "top", Color: "A6A6A6", Style: 1},
		{Type: "bottom", Color: "A6A6A6", Style: 1},
	}
	s := &styleSet{}
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.title, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{titleFill}},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		}},
		{&s.label, &excelize.Style{
			Font: &excelize.Font{Bold: true},
		}},
		{&s.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
			Border:    thin,
		}},
		{&s.amount, &excelize.Style{
			NumFmt:    numFmtAmount,
			Alignment: &excelize.Alignment{Horizontal: "right"},
			Border:    thin,
		}},
		{&s.text, &excelize.Style{
			Alignment: &excelize.Alignment{Horizontal: "left"},
			Border:    thin,
		}},
		{&s.placeholder, &excelize.Style{
			Font:      &excelize.Font{Italic: true, Color: "7F7F7F"},
			Alignment: &excelize.Alignment{Horizontal: "left"},
		}},
	}
	for _, d := range defs {
		id, err := w.file.NewStyle(d.style)
		if err != nil {
			return nil, fmt.Errorf("create style: %w", err)
		}
		*d.dst = id
	}
	w.styles = s
	return s, nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// layout writes title, identity block, header and data rows into an empty
// sheet, then fits column widths.
func (w *Workbook) layout(sheet, title string, columns []string, rows []Row, placeholder string) error {
	st, err := w.ensureStyles()
	if err != nil {
		return err
	}
	f := w.file
	last := len(columns)

	// Title block.
	stamp := w.clock().Format(titleStampLayout)
	if err := f.SetCellStr(sheet, cell(1, titleRow), fmt.Sprintf("%s - Generated %s", title, stamp)); err != nil {
		return err
	}
	if last > 1 {
		if err := f.MergeCell(sheet, cell(1, titleRow), cell(last, titleRow)); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, cell(1, titleRow), cell(last, titleRow), st.title); err != nil {
		return err
	}
	if err := f.SetRowHeight(sheet, titleRow, 24); err != nil {
		return err
	}

	// Company identity block.
	identity := []string{"Company:", w.identity.Name, "Tax ID:", w.identity.TaxID}
	for i, v := range identity {
		if err := f.SetCellStr(sheet, cell(i+1, identityRow), v); err != nil {
			return err
		}
	}
	for _, col := range []int{1, 3} {
		if err := f.SetCellStyle(sheet, cell(col, identityRow), cell(col, identityRow), st.label); err != nil {
			return err
		}
	}

	// Header row.
	for i, c := range columns {
		if err := f.SetCellStr(sheet, cell(i+1, headerRow), c); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, cell(1, headerRow), cell(last, headerRow), st.header); err != nil {
		return err
	}

	widths := make([]int, last)
	for i, c := range columns {
		widths[i] = utf8.RuneCountInString(c)
	}

	if placeholder != "" {
		if err := f.SetCellStr(sheet, cell(1, firstData), placeholder); err != nil {
			return err
		}
		if last > 1 {
			if err := f.MergeCell(sheet, cell(1, firstData), cell(last, firstData)); err != nil {
				return err
			}
		}
		if err := f.SetCellStyle(sheet, cell(1, firstData), cell(last, firstData), st.placeholder); err != nil {
			return err
		}
	} else {
		numeric := make([]bool, last)
		for i, c := range columns {
			numeric[i] = isNumericColumn(c, w.numericKeywords)
		}
		for r, row := range rows {
			rowNum := firstData + r
			for i, c := range columns {
				v := cellValue(row[c], numeric[i])
				addr := cell(i+1, rowNum)
				switch x := v.(type) {
				case float64:
					err = f.SetCellFloat(sheet, addr, x, -1, 64)
				default:
					err = f.SetCellStr(sheet, addr, fmt.Sprint(x))
				}
				if err != nil {
					return err
				}
				if n := utf8.RuneCountInString(displayText(v)); n > widths[i] {
					widths[i] = n
				}
			}
		}
		lastRow := firstData + len(rows) - 1
		for i := 0; i < last && len(rows) > 0; i++ {
			style := st.text
			if numeric[i] {
				style = st.amount
			}
			if err := f.SetCellStyle(sheet, cell(i+1, firstData), cell(i+1, lastRow), style); err != nil {
				return err
			}
		}
	}

	for i := range columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, fitWidth(widths[i], w.minWidth, w.maxWidth)); err != nil {
			return err
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: cell(1, firstData),
		ActivePane:  "bottomLeft",
	})
}

// fitWidth is clamp(longest+2, min, max).
func fitWidth(longest int, min, max float64) float64 {
	return math.Min(math.Max(float64(longest+2), min), max)
}
