package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpreadsheetID(t *testing.T) {
	tests := map[string]string{
		"https://docs.google.com/spreadsheets/d/19H1Tvyy1Of36PIqonFM2OQGYBFjhDHHSxGWPMlb1RBc/edit?usp=sharing": "19H1Tvyy1Of36PIqonFM2OQGYBFjhDHHSxGWPMlb1RBc",
		"https://docs.google.com/spreadsheets/d/abc_DEF-123":                                                "abc_DEF-123",
		"1QgYUWbeT5laQiwA5qEw76K_tsKZX721vTzXU91AXg_E":                                                      "1QgYUWbeT5laQiwA5qEw76K_tsKZX721vTzXU91AXg_E",
	}

	for in, want := range tests {
		assert.Equal(t, want, SpreadsheetID(in), in)
	}
}

func TestPadRow(t *testing.T) {
	assert.Equal(t, []string{"", "", "", ""}, padRow(nil))
	assert.Equal(t, []string{"01/02/2024", "31/01/2024", "", ""}, padRow([]interface{}{"01/02/2024", "31/01/2024"}))
	assert.Equal(t, []string{"a", "", "c", "12.5"}, padRow([]interface{}{"a", nil, "c", 12.5}))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, padRow([]interface{}{"a", "b", "c", "d", "e"}))
}

func TestRangeForQuotesTitle(t *testing.T) {
	w := &Worksheet{title: "Sheet1"}
	assert.Equal(t, "'Sheet1'!A2:D2", w.rangeFor("A2:D2"))

	w = &Worksheet{title: "NAV's data"}
	assert.Equal(t, "'NAV''s data'!A:D", w.rangeFor("A:D"))
}
