package report

import "strings"

func headerKey(s string) string {
	return strings.ToLower(condense(s))
}

// FromGrid reshapes a scraped table into rows keyed by the declared columns.
// Columns are matched to header cells ignoring case and whitespace; when the
// table has no header, or no declared column matches it, cells are assigned
// by position. Row order is preserved.
func FromGrid(header []string, grid [][]string, columns []string) []Row {
	index := make(map[string]int, len(header))
	for i, h := range header {
		k := headerKey(h)
		if _, dup := index[k]; !dup {
			index[k] = i
		}
	}

	positions := make([]int, len(columns))
	matched := 0
	for i, c := range columns {
		if j, ok := index[headerKey(c)]; ok {
			positions[i] = j
			matched++
		} else {
			positions[i] = -1
		}
	}
	if matched == 0 {
		for i := range positions {
			positions[i] = i
		}
	}

	rows := make([]Row, 0, len(grid))
	for _, cells := range grid {
		row := make(Row, len(columns))
		for i, c := range columns {
			j := positions[i]
			if j >= 0 && j < len(cells) {
				row[c] = condense(cells[j])
			} else {
				row[c] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}
