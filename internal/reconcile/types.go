// Package reconcile upserts NAV rows into a row-addressed sheet, keyed by fund
// and NAV date.
package reconcile

import (
	"context"
	"fmt"

	"fmarket_nav/internal/nav"
)

// Header is written as the first row of an empty sheet.
var Header = []string{"Date report", "Date NAV", "Fund", "NAV"}

// Columns is the fixed width of a sheet row.
const Columns = 4

// Sheet column positions used for the key.
const (
	colNAVDate = 1
	colFund    = 2
)

// SheetRow is the persisted form of a record.
type SheetRow struct {
	ReportDate string
	NAVDate    string
	Fund       string
	NAV        float64
}

// FromRecord converts a normalized record to its sheet form.
func FromRecord(rec nav.Record) SheetRow {
	return SheetRow{
		ReportDate: rec.ReportDateText(),
		NAVDate:    rec.NAVDateText(),
		Fund:       rec.Fund,
		NAV:        rec.NAV,
	}
}

// FromRecords converts records in order.
func FromRecords(recs []nav.Record) []SheetRow {
	rows := make([]SheetRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, FromRecord(rec))
	}
	return rows
}

// Key identifies a logical record across runs.
func (r SheetRow) Key() Key {
	return Key{Fund: r.Fund, NAVDate: r.NAVDate}
}

// Values returns the row as sheet cell values, A through D.
func (r SheetRow) Values() []interface{} {
	return []interface{}{r.ReportDate, r.NAVDate, r.Fund, r.NAV}
}

// Key is the reconciliation key (fund, NAV date text).
type Key struct {
	Fund    string
	NAVDate string
}

// OpKind is the kind of a planned write.
type OpKind int

const (
	OpHeader OpKind = iota
	OpUpdate
	OpAppend
)

func (k OpKind) String() string {
	switch k {
	case OpHeader:
		return "header"
	case OpUpdate:
		return "update"
	case OpAppend:
		return "append"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Op is a single planned write. Row is the 1-based sheet address for
// OpUpdate and zero otherwise.
type Op struct {
	Kind OpKind
	Row  int
	Data SheetRow
}

// Result counts the writes applied by a sync. The header row is not counted.
type Result struct {
	Updated       int
	Appended      int
	HeaderWritten bool
}

// Sink is a row-addressed store of 4-column rows.
type Sink interface {
	// ReadAll returns every row including the header, each padded to Columns.
	ReadAll(ctx context.Context) ([][]string, error)
	// UpdateRow overwrites columns A-D of the 1-based row.
	UpdateRow(ctx context.Context, row int, values []interface{}) error
	// AppendRow adds a row after the last non-empty row.
	AppendRow(ctx context.Context, values []interface{}) error
}

// SinkError is a failed read or write. Writes applied before it are kept.
type SinkError struct {
	Op  string
	Row int
	Err error
}

func (e *SinkError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("sink %s row %d: %v", e.Op, e.Row, e.Err)
	}
	return fmt.Sprintf("sink %s: %v", e.Op, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
