package processing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fmarket_nav/internal/config"
	"fmarket_nav/internal/fmarket"
	"fmarket_nav/internal/metrics"
	"fmarket_nav/internal/nav"
	"fmarket_nav/internal/notifications"
	"fmarket_nav/internal/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	rows  []nav.RawRow
	err   error
	calls int
}

func (s *stubExtractor) FetchRows(ctx context.Context) ([]nav.RawRow, error) {
	s.calls++
	return s.rows, s.err
}

type memorySink struct {
	rows     [][]string
	readErr  error
	writeErr error
	writes   int
}

func (m *memorySink) ReadAll(ctx context.Context) ([][]string, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (m *memorySink) UpdateRow(ctx context.Context, row int, values []interface{}) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.rows[row-1] = cells(values)
	return nil
}

func (m *memorySink) AppendRow(ctx context.Context, values []interface{}) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.rows = append(m.rows, cells(values))
	return nil
}

func cells(values []interface{}) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprint(v)
	}
	return out
}

type recordingNotifier struct {
	outcomes []notifications.RunOutcome
	err      error
}

func (n *recordingNotifier) NotifyRun(ctx context.Context, o notifications.RunOutcome) error {
	n.outcomes = append(n.outcomes, o)
	return n.err
}

func fixedClock() time.Time {
	return time.Date(2024, time.March, 20, 9, 0, 0, 0, nav.Location)
}

func scrapedRows() []nav.RawRow {
	return []nav.RawRow{
		{"DCBF Quỹ Đầu tư Trái phiếu", "Dragon Capital", "27,512.34 Theo NAV tại 15/03"},
		{"SSIBF Quỹ Trái phiếu", "SSIAM", "13,001 Theo NAV tại 15/03"},
		{"BROKEN Quỹ", "x", "n/a Theo NAV tại 15/03"},
	}
}

func TestRunSyncsNormalizedRows(t *testing.T) {
	sink := &memorySink{}
	notifier := &recordingNotifier{}
	m := metrics.New()
	r := NewRunner(&stubExtractor{rows: scrapedRows()}, sink,
		WithNotifier(notifier), WithMetrics(m), WithClock(fixedClock))

	s, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, 3, s.RawRows)
	require.Len(t, s.Records, 2)
	require.Len(t, s.RowErrors, 1)
	assert.Equal(t, reconcile.Result{Appended: 2, HeaderWritten: true}, s.Result)
	assert.Equal(t, "Saved to Google Sheets! (Updated: 0, Appended: 2). Skipped 1 unparsable rows", s.Status())
	require.Len(t, s.RowErrorMessages(), 1)
	assert.Contains(t, s.RowErrorMessages()[0], "row 2")

	require.Len(t, sink.rows, 3)
	assert.Equal(t, []string{"Date report", "Date NAV", "Fund", "NAV"}, sink.rows[0])
	assert.Equal(t, []string{"15/03/2024", "14/03/2024", "DCBF", "27512.34"}, sink.rows[1])

	require.Len(t, notifier.outcomes, 1)
	assert.Equal(t, 2, notifier.outcomes[0].Appended)
	assert.Equal(t, 1, notifier.outcomes[0].RowErrors)
	assert.NoError(t, notifier.outcomes[0].Err)
}

func TestRunTwiceUpdatesInPlace(t *testing.T) {
	sink := &memorySink{}
	r := NewRunner(&stubExtractor{rows: scrapedRows()}, sink, WithClock(fixedClock))

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	s, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, reconcile.Result{Updated: 2}, s.Result)
	assert.Len(t, sink.rows, 3)
}

func TestRunExtractionFailureAborts(t *testing.T) {
	sink := &memorySink{}
	notifier := &recordingNotifier{}
	extractErr := &fmarket.ExtractionError{Stage: "login", Err: errors.New("timeout")}
	r := NewRunner(&stubExtractor{err: extractErr}, sink, WithNotifier(notifier), WithClock(fixedClock))

	s, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, s.ExtractionFailed())
	assert.False(t, s.SinkFailed())
	assert.Empty(t, s.Records)
	assert.Zero(t, sink.writes)
	assert.Contains(t, s.Status(), "Error: ")

	require.Len(t, notifier.outcomes, 1)
	assert.Error(t, notifier.outcomes[0].Err)
}

func TestRunEmptyTableIsNoData(t *testing.T) {
	sink := &memorySink{readErr: errors.New("must not be read")}
	r := NewRunner(&stubExtractor{}, sink, WithClock(fixedClock))

	s, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No data", s.Status())
	assert.Zero(t, sink.writes)
}

func TestRunSinkFailureKeepsRecords(t *testing.T) {
	sink := &memorySink{
		rows:     [][]string{reconcile.Header},
		writeErr: errors.New("quota exceeded"),
	}
	r := NewRunner(&stubExtractor{rows: scrapedRows()}, sink, WithClock(fixedClock))

	s, err := r.Run(context.Background())
	require.Error(t, err)

	var serr *reconcile.SinkError
	require.ErrorAs(t, err, &serr)
	assert.True(t, s.SinkFailed())
	assert.Len(t, s.Records, 2)
	assert.Equal(t, "Error: "+err.Error()+" (Updated: 0, Appended: 0)", s.Status())
}

func TestRunNotifierFailureDoesNotFailRun(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("ntfy down")}
	r := NewRunner(&stubExtractor{rows: scrapedRows()}, &memorySink{},
		WithNotifier(notifier), WithClock(fixedClock))

	_, err := r.Run(context.Background())
	assert.NoError(t, err)
	assert.Len(t, notifier.outcomes, 1)
}

func TestRunScrapeTimeout(t *testing.T) {
	res := config.DefaultResilienceConfig
	res.Scrape.Timeout = 20 * time.Millisecond

	blocking := extractorFunc(func(ctx context.Context) ([]nav.RawRow, error) {
		<-ctx.Done()
		return nil, &fmarket.ExtractionError{Stage: "table", Err: ctx.Err()}
	})
	r := NewRunner(blocking, &memorySink{}, WithResilience(res), WithClock(fixedClock))

	s, err := r.Run(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, s.ExtractionFailed())
}

func TestRunAllRowsUnparsableFails(t *testing.T) {
	sink := &memorySink{}
	m := metrics.New()
	rows := []nav.RawRow{{"BROKEN Quỹ", "x", "n/a Theo NAV tại 01/02"}}
	r := NewRunner(&stubExtractor{rows: rows}, sink, WithMetrics(m), WithClock(fixedClock))

	s, err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrNoParsableRows)
	assert.True(t, s.ParseFailed())
	assert.False(t, s.ExtractionFailed())
	assert.Zero(t, sink.writes)
	assert.Equal(t, "Error: no scraped row could be parsed. Skipped 1 unparsable rows", s.Status())
	assert.NotEqual(t, "No data", s.Status())
	assert.Equal(t, metrics.ResultParseFailed, s.stats().Result)
}

func TestStatusCountsSkippedRows(t *testing.T) {
	s := &Summary{
		Records:   []nav.Record{{Fund: "DCBF"}},
		RowErrors: []error{&nav.ParseError{Row: 1, Field: "nav", Value: "n/a"}, &nav.ParseError{Row: 3, Field: "row"}},
		Result:    reconcile.Result{Updated: 1},
	}
	assert.Equal(t, "Saved to Google Sheets! (Updated: 1, Appended: 0). Skipped 2 unparsable rows", s.Status())
	assert.Len(t, s.RowErrorMessages(), 2)

	s.RowErrors = nil
	assert.Equal(t, "Saved to Google Sheets! (Updated: 1, Appended: 0)", s.Status())
}

type stubInstaller struct {
	delay time.Duration
	err   error
	calls int
}

func (s *stubInstaller) Ensure(ctx context.Context) (string, error) {
	s.calls++
	select {
	case <-time.After(s.delay):
		return "/usr/bin/chromium", s.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestRunInstallUsesItsOwnBound(t *testing.T) {
	res := config.DefaultResilienceConfig
	res.Scrape.Timeout = 20 * time.Millisecond
	res.Install.Timeout = time.Second

	installer := &stubInstaller{delay: 60 * time.Millisecond}
	extractor := &stubExtractor{rows: scrapedRows()}
	r := NewRunner(extractor, &memorySink{},
		WithInstaller(installer), WithResilience(res), WithClock(fixedClock))

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, installer.calls)
	assert.Equal(t, 1, extractor.calls)
}

func TestRunInstallFailureAborts(t *testing.T) {
	installer := &stubInstaller{err: errors.New("npx not found")}
	extractor := &stubExtractor{rows: scrapedRows()}
	r := NewRunner(extractor, &memorySink{}, WithInstaller(installer), WithClock(fixedClock))

	s, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, s.ExtractionFailed())

	var eerr *fmarket.ExtractionError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, "install", eerr.Stage)
	assert.Zero(t, extractor.calls)
}

type extractorFunc func(ctx context.Context) ([]nav.RawRow, error)

func (f extractorFunc) FetchRows(ctx context.Context) ([]nav.RawRow, error) {
	return f(ctx)
}
