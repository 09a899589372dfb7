package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const columns = 4

// Worksheet addresses columns A-D of one worksheet as a row store. It
// satisfies reconcile.Sink.
type Worksheet struct {
	client        *Client
	spreadsheetID string
	title         string
}

// OpenWorksheet binds a worksheet by title. An empty title selects the first
// worksheet of the spreadsheet.
func OpenWorksheet(ctx context.Context, client *Client, spreadsheetID, title string) (*Worksheet, error) {
	id := SpreadsheetID(spreadsheetID)
	if title == "" {
		first, err := client.FirstSheetTitle(ctx, id)
		if err != nil {
			return nil, err
		}
		title = first
	}

	log.Debug().
		Str("spreadsheet_id", id).
		Str("worksheet", title).
		Msg("Opened worksheet")

	return &Worksheet{client: client, spreadsheetID: id, title: title}, nil
}

// Title returns the worksheet title.
func (w *Worksheet) Title() string {
	return w.title
}

// ReadAll reads every row of A:D. Rows are padded to four cells since the API
// drops trailing empty cells.
func (w *Worksheet) ReadAll(ctx context.Context) ([][]string, error) {
	values, err := w.client.ReadSheet(ctx, w.spreadsheetID, w.rangeFor("A:D"))
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(values))
	for i, raw := range values {
		rows[i] = padRow(raw)
	}
	log.Debug().Int("rows", len(rows)).Msg("Read worksheet")
	return rows, nil
}

// UpdateRow overwrites A{row}:D{row}.
func (w *Worksheet) UpdateRow(ctx context.Context, row int, values []interface{}) error {
	cellRange := w.rangeFor(fmt.Sprintf("A%d:D%d", row, row))
	return w.client.UpdateRange(ctx, w.spreadsheetID, cellRange, [][]interface{}{values})
}

// AppendRow appends one row after the table that starts at A1.
func (w *Worksheet) AppendRow(ctx context.Context, values []interface{}) error {
	return w.client.AppendRows(ctx, w.spreadsheetID, w.rangeFor("A1:D1"), [][]interface{}{values})
}

func (w *Worksheet) rangeFor(cells string) string {
	return quoteTitle(w.title) + "!" + cells
}

// quoteTitle wraps a sheet title in single quotes for A1 notation, doubling
// any embedded quotes.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func padRow(raw []interface{}) []string {
	n := len(raw)
	if n < columns {
		n = columns
	}
	row := make([]string, n)
	for i, v := range raw {
		if v != nil {
			row[i] = fmt.Sprintf("%v", v)
		}
	}
	return row
}
