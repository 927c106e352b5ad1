package portal

import (
	"context"
	"testing"

	"github.com/poku-e/portalreports/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const liabilitiesTable = `<table id="liabilities">
<thead><tr><th>Tax Period</th><th>Obligation</th><th>Amount</th></tr></thead>
<tbody>
<tr><td>01/2024</td><td>VAT</td><td>1,200.00</td></tr>
<tr><td>02/2024</td><td>PAYE</td><td>300.00</td></tr>
</tbody></table>`

func TestTableStepExtract(t *testing.T) {
	page := newFakePage()
	page.html["#liabilities"] = liabilitiesTable
	step := &TableStep{
		Report: "Liabilities",
		URL:    "https://portal.example/liabilities",
		Table:  "#liabilities",
		Cols:   []string{"Obligation", "Tax Period", "Amount"},
		Actions: []Action{
			{Kind: ActionFill, Selector: "#from", Value: "01/01/2024"},
			{Kind: ActionClick, Selector: "#search"},
		},
		Page: page,
	}

	assert.Equal(t, "Liabilities", step.Name())
	rows, err := step.Extract(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, report.Row{"Obligation": "VAT", "Tax Period": "01/2024", "Amount": "1,200.00"}, rows[0])
	assert.Equal(t, "01/01/2024", page.filled["#from"])
	assert.Equal(t, []string{
		"navigate https://portal.example/liabilities",
		"fill #from",
		"click #search",
	}, page.calls)
}

func TestTableStepMissingTable(t *testing.T) {
	page := newFakePage()
	page.visible = func(string) bool { return false }
	step := &TableStep{Report: "Ledger", Table: "#ledger", Cols: []string{"Ref"}, Page: page}

	_, err := step.Extract(context.Background())
	assert.ErrorIs(t, err, ErrExtractionEmpty)
}

func TestTableStepEmptyMarker(t *testing.T) {
	page := newFakePage()
	page.visible = func(sel string) bool { return sel == "#no-records" }
	step := &TableStep{Report: "Refunds", Table: "#refunds", Empty: "#no-records", Cols: []string{"Ref"}, Page: page}

	rows, err := step.Extract(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTableStepConfirmDialog(t *testing.T) {
	page := newFakePage()
	page.html["#ledger"] = `<div><table><tr><th>Ref</th></tr><tr><td>A1</td></tr></table></div>`
	step := &TableStep{
		Report:  "Ledger",
		Table:   "#ledger",
		Cols:    []string{"Ref"},
		Actions: []Action{{Kind: ActionConfirmDialog, Selector: "#generate"}},
		Page:    page,
	}

	rows, err := step.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, page.dialogs)
	assert.Equal(t, []report.Row{{"Ref": "A1"}}, rows)
}

func TestTableStepUnknownAction(t *testing.T) {
	step := &TableStep{
		Report:  "Ledger",
		Table:   "#ledger",
		Cols:    []string{"Ref"},
		Actions: []Action{{Kind: "hover", Selector: "#x"}},
		Page:    newFakePage(),
	}
	_, err := step.Extract(context.Background())
	assert.ErrorContains(t, err, "unknown action")
}
