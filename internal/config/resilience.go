package config

import (
	"time"

	"fmarket_nav/internal/bound"
)

// ResilienceConfig bounds each external call of a run. Every call gets a
// single attempt; failures surface to the caller.
type ResilienceConfig struct {
	Scrape     bound.Config
	Install    bound.Config
	SheetRead  bound.Config
	SheetWrite bound.Config
	Notify     bound.Config
}

var DefaultResilienceConfig = ResilienceConfig{
	Scrape: bound.Config{
		Name:    "scrape",
		Timeout: 2 * time.Minute,
	},
	Install: bound.Config{
		Name:    "browser install",
		Timeout: 10 * time.Minute,
	},
	SheetRead: bound.Config{
		Name:    "sheet read",
		Timeout: 30 * time.Second,
	},
	SheetWrite: bound.Config{
		Name:    "sheet write",
		Timeout: 15 * time.Second,
	},
	Notify: bound.Config{
		Name:    "notify",
		Timeout: 10 * time.Second,
	},
}

// WithTimeouts returns a copy of c with the scrape, install and sheet
// timeouts replaced where the given values are positive.
func (c ResilienceConfig) WithTimeouts(scrape, install, sheet time.Duration) ResilienceConfig {
	if scrape > 0 {
		c.Scrape.Timeout = scrape
	}
	if install > 0 {
		c.Install.Timeout = install
	}
	if sheet > 0 {
		c.SheetRead.Timeout = sheet
		c.SheetWrite.Timeout = sheet
	}
	return c
}
