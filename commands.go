package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"fmarket_nav/internal/app"
	"fmarket_nav/internal/bound"
	"fmarket_nav/internal/export"
	"fmarket_nav/internal/processing"
	"fmarket_nav/internal/web"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	syncFrame   string
	syncOut     string
	syncXLSX    string
	syncNoTable bool
	serveAddr   string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one scrape and sync, print the table and write the CSV export.",
	RunE:  runSync,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the one-button web page that triggers a sync.",
	RunE:  runServe,
}

var installBrowserCmd = &cobra.Command{
	Use:   "install-browser",
	Short: "Locate or install the Chrome binary used for scraping.",
	RunE:  runInstallBrowser,
}

func init() {
	syncCmd.Flags().StringVar(&syncFrame, "frame", export.FrameDisplay, "CSV columns: display or sheet")
	syncCmd.Flags().StringVar(&syncOut, "out", "", "CSV output path (default <export_dir>/data.csv)")
	syncCmd.Flags().StringVar(&syncXLSX, "xlsx", "", "also write an XLSX export to this path")
	syncCmd.Flags().BoolVar(&syncNoTable, "no-table", false, "do not print the scraped table")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func loadConfig(validate bool) (*app.Config, error) {
	cfg, err := app.Load(configPath)
	if err != nil {
		return nil, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	if _, err := export.FrameFor(syncFrame, nil); err != nil {
		return err
	}

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	clients, err := app.InitializeClients(ctx, cfg)
	if err != nil {
		return err
	}

	summary, runErr := clients.Runner.Run(ctx)
	if summary != nil && len(summary.Records) > 0 {
		if err := writeExports(cmd, cfg, summary); err != nil {
			log.Error().Err(err).Msg("Failed to write exports")
			if runErr == nil {
				runErr = err
			}
		}
	}
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary)
	}
	return runErr
}

// printSummary writes the status line followed by one line per row that
// failed to parse.
func printSummary(w io.Writer, summary *processing.Summary) {
	fmt.Fprintln(w, summary.Status())
	for _, msg := range summary.RowErrorMessages() {
		fmt.Fprintf(w, "  skipped %s\n", msg)
	}
}

func writeExports(cmd *cobra.Command, cfg *app.Config, summary *processing.Summary) error {
	frame, err := export.FrameFor(syncFrame, summary.Records)
	if err != nil {
		return err
	}

	if !syncNoTable {
		export.RenderTable(cmd.OutOrStdout(), export.DisplayFrame(summary.Records))
	}

	out := syncOut
	if out == "" {
		out = filepath.Join(cfg.ExportDir, "data.csv")
	}
	if err := export.WriteCSVFile(out, frame); err != nil {
		return err
	}

	if syncXLSX == "" {
		return nil
	}
	f, err := os.Create(syncXLSX)
	if err != nil {
		return fmt.Errorf("failed to create xlsx file: %w", err)
	}
	defer f.Close()
	if err := export.WriteXLSX(f, frame); err != nil {
		return err
	}
	log.Info().Str("path", syncXLSX).Msg("Wrote XLSX export")
	return f.Close()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx := cmd.Context()
	clients, err := app.InitializeClients(ctx, cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: web.NewServer(clients.Runner, clients.Metrics.Handler()).Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Serving fmarket NAV page")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("Shutting down web server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runInstallBrowser(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	installer := app.NewInstaller(cfg)
	path, err := bound.Call(cmd.Context(), cfg.Resilience().Install, installer.Ensure)
	if err != nil {
		return fmt.Errorf("browser install failed: %w", err)
	}
	if path == "" {
		path = "(chromedp default lookup)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Browser ready: %s\n", path)
	return nil
}
