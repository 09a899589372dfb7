// Package processing drives one scrape-and-sync run end to end.
package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fmarket_nav/internal/bound"
	"fmarket_nav/internal/config"
	"fmarket_nav/internal/fmarket"
	"fmarket_nav/internal/metrics"
	"fmarket_nav/internal/nav"
	"fmarket_nav/internal/notifications"
	"fmarket_nav/internal/reconcile"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Extractor returns the raw rows of the product table. The browser-backed
// implementation is *fmarket.Scraper.
type Extractor interface {
	FetchRows(ctx context.Context) ([]nav.RawRow, error)
}

// Installer prepares the browser before a scrape. *fmarket.Installer caches
// its first success, so the scraper's own call is then immediate.
type Installer interface {
	Ensure(ctx context.Context) (string, error)
}

type Notifier interface {
	NotifyRun(ctx context.Context, outcome notifications.RunOutcome) error
}

var (
	_ Extractor = (*fmarket.Scraper)(nil)
	_ Installer = (*fmarket.Installer)(nil)
)

// ErrNoParsableRows means the table had rows but none of them normalized.
var ErrNoParsableRows = errors.New("no scraped row could be parsed")

type Runner struct {
	extractor  Extractor
	installer  Installer
	sink       reconcile.Sink
	notifier   Notifier
	metrics    *metrics.Metrics
	resilience config.ResilienceConfig
	now        func() time.Time
}

type Option func(*Runner)

// WithInstaller runs the browser install under its own bound before each
// scrape, outside the scrape timeout.
func WithInstaller(i Installer) Option {
	return func(r *Runner) { r.installer = i }
}

func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

func WithResilience(c config.ResilienceConfig) Option {
	return func(r *Runner) { r.resilience = c }
}

// WithClock replaces the clock used to resolve report-date years.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func NewRunner(extractor Extractor, sink reconcile.Sink, opts ...Option) *Runner {
	r := &Runner{
		extractor:  extractor,
		sink:       sink,
		resilience: config.DefaultResilienceConfig,
		now:        nav.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run scrapes, normalizes and syncs once. An extraction failure aborts the
// run, as does a table whose rows all fail to parse. A sink failure is returned too, but the summary still carries the
// normalized records so callers can display and export them.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	s := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
	}
	logger := log.With().Str("run_id", s.RunID).Logger()
	logger.Info().Msg("Starting NAV sync run")

	err := r.run(ctx, s)
	s.FinishedAt = r.now()
	s.Err = err

	if err != nil {
		logger.Error().Err(err).Str("status", s.Status()).Msg("NAV sync run failed")
	} else {
		logger.Info().
			Int("records", len(s.Records)).
			Int("row_errors", len(s.RowErrors)).
			Int("updated", s.Result.Updated).
			Int("appended", s.Result.Appended).
			Dur("elapsed", s.FinishedAt.Sub(s.StartedAt)).
			Msg("NAV sync run complete")
	}

	r.metrics.ObserveRun(s.stats())
	r.notify(ctx, s)
	return s, err
}

func (r *Runner) run(ctx context.Context, s *Summary) error {
	if r.installer != nil {
		if _, err := bound.Call(ctx, r.resilience.Install, r.installer.Ensure); err != nil {
			return &fmarket.ExtractionError{Stage: "install", Err: err}
		}
	}

	rows, err := bound.Call(ctx, r.resilience.Scrape, r.extractor.FetchRows)
	if err != nil {
		return err
	}
	s.RawRows = len(rows)

	s.Records, s.RowErrors = nav.NormalizeAll(rows, s.StartedAt.In(nav.Location))
	if len(s.Records) == 0 && len(s.RowErrors) > 0 {
		return ErrNoParsableRows
	}
	if len(s.Records) == 0 {
		log.Warn().
			Str("run_id", s.RunID).
			Int("raw_rows", len(rows)).
			Msg("No data")
		return nil
	}

	sink := boundedSink{sink: r.sink, resilience: r.resilience}
	s.Result, err = reconcile.Sync(ctx, sink, reconcile.FromRecords(s.Records))
	return err
}

func (r *Runner) notify(ctx context.Context, s *Summary) {
	if r.notifier == nil {
		return
	}
	err := bound.Do(ctx, r.resilience.Notify, func(ctx context.Context) error {
		return r.notifier.NotifyRun(ctx, s.outcome())
	})
	if err != nil {
		log.Warn().Err(err).Str("run_id", s.RunID).Msg("Failed to send run notification")
	}
}

// Summary is the outcome of one run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	RawRows    int
	Records    []nav.Record
	RowErrors  []error
	Result     reconcile.Result
	Err        error
}

// ExtractionFailed reports whether the run stopped before any rows were read.
func (s *Summary) ExtractionFailed() bool {
	return fmarket.IsExtractionError(s.Err)
}

// SinkFailed reports whether the sheet read or a write failed.
func (s *Summary) SinkFailed() bool {
	var serr *reconcile.SinkError
	return errors.As(s.Err, &serr)
}

// ParseFailed reports whether every scraped row failed to normalize.
func (s *Summary) ParseFailed() bool {
	return errors.Is(s.Err, ErrNoParsableRows)
}

// Status is the one-line message shown to the user. Rows that failed to
// parse are counted in it.
func (s *Summary) Status() string {
	var msg string
	switch {
	case s.Err != nil && s.SinkFailed():
		msg = fmt.Sprintf("Error: %v (Updated: %d, Appended: %d)", s.Err, s.Result.Updated, s.Result.Appended)
	case s.Err != nil:
		msg = fmt.Sprintf("Error: %v", s.Err)
	case len(s.Records) == 0:
		msg = "No data"
	default:
		msg = fmt.Sprintf("Saved to Google Sheets! (Updated: %d, Appended: %d)", s.Result.Updated, s.Result.Appended)
	}
	if n := len(s.RowErrors); n > 0 {
		msg += fmt.Sprintf(". Skipped %d unparsable rows", n)
	}
	return msg
}

// RowErrorMessages lists the per-row parse failures in row order.
func (s *Summary) RowErrorMessages() []string {
	msgs := make([]string, 0, len(s.RowErrors))
	for _, err := range s.RowErrors {
		msgs = append(msgs, err.Error())
	}
	return msgs
}

func (s *Summary) outcome() notifications.RunOutcome {
	return notifications.RunOutcome{
		RunID:     s.RunID,
		Records:   len(s.Records),
		RowErrors: len(s.RowErrors),
		Updated:   s.Result.Updated,
		Appended:  s.Result.Appended,
		Err:       s.Err,
	}
}

func (s *Summary) stats() metrics.RunStats {
	result := metrics.ResultSuccess
	switch {
	case s.SinkFailed():
		result = metrics.ResultSinkFailed
	case s.ParseFailed():
		result = metrics.ResultParseFailed
	case s.Err != nil:
		result = metrics.ResultExtractFailed
	}
	return metrics.RunStats{
		Result:    result,
		Records:   len(s.Records),
		Updated:   s.Result.Updated,
		Appended:  s.Result.Appended,
		Skipped:   len(s.RowErrors),
		Seconds:   s.FinishedAt.Sub(s.StartedAt).Seconds(),
		Timestamp: float64(s.FinishedAt.Unix()),
	}
}
