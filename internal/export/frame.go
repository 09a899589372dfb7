// Package export renders scraped NAV records as CSV, XLSX and console tables.
package export

import (
	"fmt"
	"strconv"

	"fmarket_nav/internal/nav"
	"fmarket_nav/internal/reconcile"
)

// Frame names accepted by FrameFor.
const (
	FrameDisplay = "display"
	FrameSheet   = "sheet"
)

// Column headers of the derived display columns.
const (
	HeaderNAV        = "NAV"
	HeaderReportDate = "Ngày báo cáo"
	HeaderNAVDate    = "Ngày NAV"
)

// navColumn is the raw column replaced by the derived NAV and date columns.
const navColumn = 2

// Frame is a rectangular table of text with a header row.
type Frame struct {
	Header []string
	Rows   [][]string
}

// FrameFor builds the named frame.
func FrameFor(name string, recs []nav.Record) (Frame, error) {
	switch name {
	case "", FrameDisplay:
		return DisplayFrame(recs), nil
	case FrameSheet:
		return SheetFrame(recs), nil
	default:
		return Frame{}, fmt.Errorf("unknown frame %q (want %s or %s)", name, FrameDisplay, FrameSheet)
	}
}

// DisplayFrame keeps the scraped columns, indexed by position, except the
// combined NAV column. Column 0 holds the fund name. The derived NAV, report
// date and NAV date columns follow.
func DisplayFrame(recs []nav.Record) Frame {
	width := 0
	for _, rec := range recs {
		if len(rec.Raw) > width {
			width = len(rec.Raw)
		}
	}

	var header []string
	for i := 0; i < width; i++ {
		if i == navColumn {
			continue
		}
		header = append(header, strconv.Itoa(i))
	}
	header = append(header, HeaderNAV, HeaderReportDate, HeaderNAVDate)

	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := make([]string, 0, len(header))
		for i := 0; i < width; i++ {
			switch {
			case i == navColumn:
				continue
			case i == 0:
				row = append(row, rec.Fund)
			case i < len(rec.Raw):
				row = append(row, rec.Raw[i])
			default:
				row = append(row, "")
			}
		}
		row = append(row, navText(rec), rec.ReportDateText(), rec.NAVDateText())
		rows = append(rows, row)
	}

	return Frame{Header: header, Rows: rows}
}

// SheetFrame is the four-column shape persisted to the sheet.
func SheetFrame(recs []nav.Record) Frame {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := reconcile.FromRecord(rec)
		rows = append(rows, []string{row.ReportDate, row.NAVDate, row.Fund, navText(rec)})
	}
	return Frame{Header: append([]string(nil), reconcile.Header...), Rows: rows}
}

func navText(rec nav.Record) string {
	if rec.NAVText != "" {
		return rec.NAVText
	}
	return strconv.FormatFloat(rec.NAV, 'f', -1, 64)
}
