// Package fmarket drives a headless Chrome session against fmarket.vn and
// extracts the fund product table.
package fmarket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fmarket_nav/internal/nav"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLoginURL   = "https://fmarket.vn/trade/auth/login"
	DefaultFilterText = "Tất cả Quỹ trái phiếu"
)

const (
	emailSelector    = `#focusEmail`
	passwordSelector = `#focusPassword`
	productsSelector = `#table-products`
	tableSelector    = `#table-products table`
)

// clickFilterJS clicks the third div under the product table whose text
// contains the filter label, returning false when there is no such div.
const clickFilterJS = `(() => {
	const label = %q;
	const matches = Array.from(document.querySelectorAll('#table-products div'))
		.filter(d => (d.innerText || '').includes(label));
	if (matches.length <= %d) return false;
	matches[%d].click();
	return true;
})()`

// filterReadyJS reports whether the filter element to click has rendered.
const filterReadyJS = `(() => {
	const label = %q;
	return Array.from(document.querySelectorAll('#table-products div'))
		.filter(d => (d.innerText || '').includes(label)).length > %d;
})()`

// Credentials for the fmarket account.
type Credentials struct {
	Email    string
	Password string
}

// Options tune the browser session.
type Options struct {
	LoginURL    string
	FilterText  string
	FilterIndex int
	// FilterWait bounds how long the filter element may take to render.
	FilterWait  time.Duration
	SettleDelay time.Duration
	Headless    bool
	NoSandbox   bool
}

// DefaultOptions mirror the interactive flow: the third matching filter
// element and a two-second settle after clicking it.
func DefaultOptions() Options {
	return Options{
		LoginURL:    DefaultLoginURL,
		FilterText:  DefaultFilterText,
		FilterIndex: 2,
		FilterWait:  30 * time.Second,
		SettleDelay: 2 * time.Second,
		Headless:    true,
	}
}

// Scraper logs in and returns the bond-fund table rows.
type Scraper struct {
	creds     Credentials
	opts      Options
	installer *Installer
}

func NewScraper(creds Credentials, opts Options, installer *Installer) *Scraper {
	return &Scraper{creds: creds, opts: opts, installer: installer}
}

// FetchRows runs the whole browser session. Every failure is an
// *ExtractionError naming the step that failed.
func (s *Scraper) FetchRows(ctx context.Context) ([]nav.RawRow, error) {
	execPath, err := s.installer.Ensure(ctx)
	if err != nil {
		return nil, &ExtractionError{Stage: "install", Err: err}
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, s.allocatorOptions(execPath)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	start := time.Now()

	if err := chromedp.Run(browserCtx); err != nil {
		return nil, &ExtractionError{Stage: "launch", Err: err}
	}
	log.Debug().Msg("Browser launched")

	if err := chromedp.Run(browserCtx, s.loginTasks()); err != nil {
		return nil, &ExtractionError{Stage: "login", Err: err}
	}
	log.Debug().Str("url", s.opts.LoginURL).Msg("Logged in")

	pollOpts := []chromedp.PollOption{chromedp.WithPollingInterval(100 * time.Millisecond)}
	if s.opts.FilterWait > 0 {
		pollOpts = append(pollOpts, chromedp.WithPollingTimeout(s.opts.FilterWait))
	}
	var ready bool
	if err := chromedp.Run(browserCtx,
		chromedp.Poll(fmt.Sprintf(filterReadyJS, s.opts.FilterText, s.opts.FilterIndex), &ready, pollOpts...),
	); err != nil {
		return nil, &ExtractionError{Stage: "filter", Err: fmt.Errorf("waiting for filter %q: %w", s.opts.FilterText, err)}
	}

	var clicked bool
	if err := chromedp.Run(browserCtx,
		chromedp.Evaluate(fmt.Sprintf(clickFilterJS, s.opts.FilterText, s.opts.FilterIndex, s.opts.FilterIndex), &clicked),
	); err != nil {
		return nil, &ExtractionError{Stage: "filter", Err: err}
	}
	if !clicked {
		return nil, &ExtractionError{Stage: "filter", Err: fmt.Errorf("filter %q not found", s.opts.FilterText)}
	}

	var markup string
	if err := chromedp.Run(browserCtx,
		chromedp.Sleep(s.opts.SettleDelay),
		chromedp.OuterHTML(tableSelector, &markup, chromedp.ByQuery),
	); err != nil {
		return nil, &ExtractionError{Stage: "table", Err: err}
	}

	rows, err := ParseTable(markup)
	if err != nil {
		return nil, &ExtractionError{Stage: "parse", Err: err}
	}

	log.Info().
		Int("rows", len(rows)).
		Dur("elapsed", time.Since(start)).
		Msg("Scraped fund table")

	return rows, nil
}

func (s *Scraper) loginTasks() chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.Navigate(s.opts.LoginURL),
		chromedp.WaitVisible(emailSelector, chromedp.ByQuery),
		chromedp.SendKeys(emailSelector, s.creds.Email, chromedp.ByQuery),
		chromedp.SendKeys(passwordSelector, s.creds.Password, chromedp.ByQuery),
		chromedp.SendKeys(passwordSelector, kb.Enter, chromedp.ByQuery),
		chromedp.WaitVisible(productsSelector, chromedp.ByQuery),
	}
}

func (s *Scraper) allocatorOptions(execPath string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", s.opts.Headless))
	if s.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	return opts
}

// IsExtractionError reports whether err came from the browser session.
func IsExtractionError(err error) bool {
	var eerr *ExtractionError
	return errors.As(err, &eerr)
}
