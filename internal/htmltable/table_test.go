package htmltable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ledgerHTML = `<html><body>
<div id="results">
<table class="grid">
  <thead>
    <tr><th colspan="3">Ledger</th></tr>
    <tr><th>Tax Period</th><th>Obligation</th><th> Amount </th></tr>
  </thead>
  <tbody>
    <tr><td>01/2024</td><td>VAT</td><td>1,200.00</td></tr>
    <tr><td> </td><td></td><td></td></tr>
    <tr><td>02/2024</td><td>PAYE
        Monthly</td><td>(300.00)</td></tr>
    <tr><td>Notes</td><td colspan="2"><table><tr><td>nested</td></tr></table></td></tr>
  </tbody>
</table>
</div>
</body></html>`

func TestParseHTML(t *testing.T) {
	g, err := ParseHTML(ledgerHTML, "table.grid")
	require.NoError(t, err)

	assert.Equal(t, []string{"Tax Period", "Obligation", "Amount"}, g.Header)
	require.Len(t, g.Rows, 3)
	assert.Equal(t, []string{"01/2024", "VAT", "1,200.00"}, g.Rows[0])
	assert.Equal(t, []string{"02/2024", "PAYE Monthly", "(300.00)"}, g.Rows[1])
	assert.Equal(t, []string{"Notes", "nested", ""}, g.Rows[2])
}

func TestParseContainerSelector(t *testing.T) {
	g, err := Parse(strings.NewReader(ledgerHTML), "#results")
	require.NoError(t, err)
	assert.Len(t, g.Rows, 3)
}

func TestParseHeaderFromThRow(t *testing.T) {
	html := `<table id="t"><tr><th>A</th><th>B</th></tr><tr><td>1</td><td>2</td></tr></table>`
	g, err := ParseHTML(html, "#t")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, g.Header)
	assert.Equal(t, [][]string{{"1", "2"}}, g.Rows)
}

func TestParseWithoutHeader(t *testing.T) {
	html := `<table><tr><td>1</td><td>2</td></tr></table>`
	g, err := ParseHTML(html, "")
	require.NoError(t, err)
	assert.Nil(t, g.Header)
	assert.Equal(t, [][]string{{"1", "2"}}, g.Rows)
}

func TestParseEmptyTable(t *testing.T) {
	html := `<table id="t"><thead><tr><th>A</th></tr></thead><tbody></tbody></table>`
	g, err := ParseHTML(html, "#t")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, g.Header)
	assert.Empty(t, g.Rows)
}

func TestParseTableNotFound(t *testing.T) {
	_, err := ParseHTML(`<p>nothing</p>`, "#missing")
	assert.ErrorIs(t, err, ErrTableNotFound)

	_, err = ParseHTML(`<div id="x"><p>no table</p></div>`, "#x")
	assert.ErrorIs(t, err, ErrTableNotFound)
}
