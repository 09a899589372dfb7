package app

import (
	"context"
	"fmt"
	"strings"

	"fmarket_nav/internal/fmarket"
	"fmarket_nav/internal/metrics"
	"fmarket_nav/internal/notifications"
	"fmarket_nav/internal/processing"
	"fmarket_nav/internal/sheets"

	"github.com/rs/zerolog/log"
)

// Clients bundles everything a run needs.
type Clients struct {
	Installer *fmarket.Installer
	Scraper   *fmarket.Scraper
	Worksheet *sheets.Worksheet
	Notifier  *notifications.Client
	Metrics   *metrics.Metrics
	Runner    *processing.Runner
}

// NewInstaller builds the browser installer from the browser section alone,
// so it can run before the rest of the configuration is complete.
func NewInstaller(cfg *Config) *fmarket.Installer {
	return fmarket.NewInstaller(strings.Fields(cfg.Browser.InstallCommand), cfg.Browser.ExecPath)
}

// InitializeClients opens the worksheet and wires the scraper, notifier and
// metrics into a Runner.
func InitializeClients(ctx context.Context, cfg *Config) (*Clients, error) {
	log.Debug().Msg("Initializing clients")

	sheetsClient, err := sheets.NewClient(ctx, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	sheetsClient.SetValueInputOption(cfg.ValueInput)

	spreadsheetID := sheets.SpreadsheetID(cfg.SpreadsheetID)
	worksheet, err := sheets.OpenWorksheet(ctx, sheetsClient, spreadsheetID, cfg.WorksheetTitle)
	if err != nil {
		return nil, fmt.Errorf("failed to open worksheet: %w", err)
	}

	installer := NewInstaller(cfg)
	scraper := fmarket.NewScraper(
		fmarket.Credentials{Email: cfg.Email, Password: cfg.Password},
		cfg.ScraperOptions(),
		installer,
	)

	notifier := InitializeNotificationClient(cfg)
	m := metrics.New()

	runner := processing.NewRunner(scraper, worksheet,
		processing.WithInstaller(installer),
		processing.WithNotifier(notifier),
		processing.WithMetrics(m),
		processing.WithResilience(cfg.Resilience()),
	)

	log.Debug().
		Str("spreadsheet_id", spreadsheetID).
		Str("worksheet", worksheet.Title()).
		Msg("Clients initialized successfully")

	return &Clients{
		Installer: installer,
		Scraper:   scraper,
		Worksheet: worksheet,
		Notifier:  notifier,
		Metrics:   m,
		Runner:    runner,
	}, nil
}

// InitializeNotificationClient creates the ntfy client from the notify section.
func InitializeNotificationClient(cfg *Config) *notifications.Client {
	n := cfg.Notify
	log.Debug().
		Bool("enabled", n.Enabled).
		Str("base_url", n.URL).
		Str("topic", n.Topic).
		Msg("Initializing notification client")

	client := notifications.NewClient(n.URL, n.Topic, n.Enabled, n.Priority)
	if client.Enabled() {
		log.Info().Str("topic", n.Topic).Msg("Notifications enabled")
	} else {
		log.Debug().Msg("Notifications disabled")
	}
	return client
}
