package nav

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Tokens of the Vietnamese cell text. The fund cell reads "<code> Quỹ ...",
// the NAV cell reads "<nav> Theo NAV tại <dd/mm>".
const (
	fundToken   = "Quỹ"
	navToken    = "Theo"
	dateToken   = "tại"
	parseLayout = "2/1/2006"
)

const (
	fundCell = 0
	navCell  = 2
	minCells = 3
)

var errNegative = errors.New("negative value")

// Normalize parses one raw row. now supplies the year for the day/month report
// date and drives the December-in-January rollover. An unparseable date leaves
// ReportDate and NAVDate unset; an unparseable NAV is a *ParseError.
func Normalize(raw RawRow, now time.Time) (Record, error) {
	if len(raw) < minCells {
		return Record{}, &ParseError{
			Field: "row",
			Value: strings.Join(raw, " | "),
			Err:   fmt.Errorf("expected at least %d cells, got %d", minCells, len(raw)),
		}
	}

	fund := beforeToken(norm.NFC.String(raw[fundCell]), fundToken)

	combined := norm.NFC.String(raw[navCell])
	navPart := beforeToken(combined, navToken)
	datePart, hasDate := segmentAfter(combined, dateToken)

	value, err := ParseNAV(navPart)
	if err != nil {
		return Record{}, &ParseError{Field: "nav", Value: navPart, Err: err}
	}
	f, _ := value.Float64()

	rec := Record{
		Fund:    fund,
		NAV:     f,
		NAVText: value.String(),
		Raw:     raw,
	}

	if hasDate {
		if reportDate, ok := ReportDate(datePart, now); ok {
			rec.ReportDate = reportDate
			rec.NAVDate = reportDate.AddDate(0, 0, -1)
		}
	}

	return rec, nil
}

// NormalizeAll normalizes rows in order. Rows that fail are left out of the
// result and reported as *ParseError values carrying their row index.
func NormalizeAll(rows []RawRow, now time.Time) ([]Record, []error) {
	records := make([]Record, 0, len(rows))
	var rowErrs []error

	for i, raw := range rows {
		rec, err := Normalize(raw, now)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Row = i
			}
			log.Warn().
				Err(err).
				Int("row", i).
				Msg("Skipping row that failed to normalize")
			rowErrs = append(rowErrs, err)
			continue
		}
		records = append(records, rec)
	}

	log.Debug().
		Int("rows", len(rows)).
		Int("records", len(records)).
		Int("errors", len(rowErrs)).
		Msg("Normalized scraped rows")

	return records, rowErrs
}

// ParseNAV strips thousands separators and parses the remainder as an exact
// decimal. Negative values are rejected.
func ParseNAV(text string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if value.IsNegative() {
		return decimal.Decimal{}, errNegative
	}
	return value, nil
}

// ReportDate resolves a "DD/MM" text to a date in now's year, moving December
// dates seen in January back one year. ok is false when the text is not a
// valid day/month.
func ReportDate(dayMonth string, now time.Time) (time.Time, bool) {
	text := strings.TrimSpace(dayMonth) + "/" + strconv.Itoa(now.Year())
	t, err := time.ParseInLocation(parseLayout, text, now.Location())
	if err != nil {
		log.Debug().
			Err(err).
			Str("date_text", dayMonth).
			Msg("Could not parse report date")
		return time.Time{}, false
	}

	if t.Month() == time.December && now.Month() == time.January {
		t = t.AddDate(-1, 0, 0)
	}
	return t, true
}

// beforeToken returns the trimmed text before the first token, or the whole
// trimmed text when the token is absent.
func beforeToken(s, token string) string {
	before, _, _ := strings.Cut(s, token)
	return strings.TrimSpace(before)
}

// segmentAfter returns the trimmed text between the first and second token
// occurrence (or to the end of s).
func segmentAfter(s, token string) (string, bool) {
	parts := strings.Split(s, token)
	if len(parts) < 2 {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
