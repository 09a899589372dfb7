// Package nav turns raw fund-table rows scraped from fmarket into typed NAV
// records.
package nav

import "time"

// DateLayout is the DD/MM/YYYY text form used in the sheet and exports.
const DateLayout = "02/01/2006"

// Location is the market's time zone. The current year and month used for
// report-date inference are taken here, not on the host clock's zone.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		Location = time.FixedZone("ICT", 7*60*60)
	}
}

// Now returns the current time in the market's time zone.
func Now() time.Time {
	return time.Now().In(Location)
}

// RawRow is one table row exactly as extracted: positional text cells.
type RawRow []string

// Record is a normalized row. A zero ReportDate means the date could not be
// parsed; NAVDate is then zero too.
type Record struct {
	Fund       string
	NAV        float64
	NAVText    string
	ReportDate time.Time
	NAVDate    time.Time
	Raw        RawRow
}

// ReportDateText renders ReportDate as DD/MM/YYYY, or "" when unset.
func (r Record) ReportDateText() string {
	return FormatDate(r.ReportDate)
}

// NAVDateText renders NAVDate as DD/MM/YYYY, or "" when unset.
func (r Record) NAVDateText() string {
	return FormatDate(r.NAVDate)
}

// FormatDate renders t as DD/MM/YYYY; the zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
