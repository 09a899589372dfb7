package export

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderTable prints the frame as a boxed table.
func RenderTable(w io.Writer, f Frame) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(toRow(f.Header))
	for _, record := range f.Rows {
		t.AppendRow(toRow(record))
	}
	t.Render()
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
