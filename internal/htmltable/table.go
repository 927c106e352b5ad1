// Package htmltable reads HTML tables into plain text grids.
package htmltable

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrTableNotFound is returned when the selector matches no table.
var ErrTableNotFound = errors.New("table not found")

var spaceRe = regexp.MustCompile(`\s+`)

const maxColspan = 64

// Grid is a table as text: an optional header row and body rows in document
// order. Rows may be ragged.
type Grid struct {
	Header []string
	Rows   [][]string
}

// Parse reads the first element matching selector from r. The selector may
// point at the table itself or at a container holding it.
func Parse(r io.Reader, selector string) (Grid, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Grid{}, fmt.Errorf("parse html: %w", err)
	}
	return FromSelection(doc.Selection, selector)
}

// ParseHTML is Parse over a string.
func ParseHTML(html, selector string) (Grid, error) {
	return Parse(strings.NewReader(html), selector)
}

// FromSelection extracts the table matched by selector under root.
func FromSelection(root *goquery.Selection, selector string) (Grid, error) {
	if selector == "" {
		selector = "table"
	}
	table := root.Find(selector).First()
	if table.Length() == 0 {
		return Grid{}, fmt.Errorf("%w: selector %q", ErrTableNotFound, selector)
	}
	if !table.Is("table") {
		table = table.Find("table").First()
		if table.Length() == 0 {
			return Grid{}, fmt.Errorf("%w: no table inside %q", ErrTableNotFound, selector)
		}
	}

	// Rows of nested tables belong to those tables.
	trs := table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(table)
	})

	var g Grid
	trs.Each(func(i int, tr *goquery.Selection) {
		cells := rowCells(tr)
		if g.Header == nil && len(g.Rows) == 0 && isHeaderRow(tr) {
			g.Header = cells
			return
		}
		if tr.ParentsFiltered("thead").Length() > 0 {
			// Extra header rows; the last one labels the columns.
			if g.Header != nil && len(g.Rows) == 0 {
				g.Header = cells
			}
			return
		}
		if allEmpty(cells) {
			return
		}
		g.Rows = append(g.Rows, cells)
	})
	return g, nil
}

func isHeaderRow(tr *goquery.Selection) bool {
	if tr.ParentsFiltered("thead").Length() > 0 {
		return true
	}
	return tr.ChildrenFiltered("th").Length() > 0 && tr.ChildrenFiltered("td").Length() == 0
}

// rowCells returns cell texts, padding colspans with empty cells so values
// stay under their headers.
func rowCells(tr *goquery.Selection) []string {
	var cells []string
	tr.ChildrenFiltered("td, th").Each(func(_ int, c *goquery.Selection) {
		cells = append(cells, condense(c.Text()))
		if span, err := strconv.Atoi(c.AttrOr("colspan", "1")); err == nil && span <= maxColspan {
			for ; span > 1; span-- {
				cells = append(cells, "")
			}
		}
	})
	return cells
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func condense(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
