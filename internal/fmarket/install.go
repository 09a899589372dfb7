package fmarket

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultBrowserNames are looked up on PATH when no executable is configured.
var DefaultBrowserNames = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
	"chrome",
}

// Installer makes a Chrome executable available once per process. A failed
// attempt is not cached; the next Ensure tries again.
type Installer struct {
	command  []string
	execPath string
	names    []string

	lookPath   func(string) (string, error)
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)

	mu        sync.Mutex
	installed bool
	resolved  string
}

// NewInstaller returns an installer that runs command (if any) and then
// resolves execPath, or the first of DefaultBrowserNames found on PATH.
func NewInstaller(command []string, execPath string) *Installer {
	return &Installer{
		command:  command,
		execPath: execPath,
		names:    DefaultBrowserNames,
		lookPath: exec.LookPath,
		runCommand: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// Installed reports whether Ensure has completed successfully.
func (i *Installer) Installed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.installed
}

// Ensure installs and locates the browser on first success and returns the
// cached executable path afterwards. An empty path means chromedp's own
// lookup is used.
func (i *Installer) Ensure(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.installed {
		return i.resolved, nil
	}

	ranCommand := false
	if len(i.command) > 0 {
		log.Info().
			Str("command", strings.Join(i.command, " ")).
			Msg("Installing browser")
		out, err := i.runCommand(ctx, i.command[0], i.command[1:]...)
		if err != nil {
			log.Error().
				Err(err).
				Str("output", string(out)).
				Msg("Browser install command failed")
			return "", fmt.Errorf("browser install command failed: %w: %s", err, strings.TrimSpace(string(out)))
		}
		ranCommand = true
	}

	path, err := i.locate()
	if err != nil {
		if !ranCommand {
			return "", err
		}
		log.Debug().Err(err).Msg("Installed browser not on PATH; deferring to chromedp lookup")
		path = ""
	}

	i.installed = true
	i.resolved = path
	log.Info().Str("exec_path", path).Msg("Browser ready")
	return path, nil
}

func (i *Installer) locate() (string, error) {
	if i.execPath != "" {
		if _, err := os.Stat(i.execPath); err != nil {
			return "", fmt.Errorf("configured browser executable: %w", err)
		}
		return i.execPath, nil
	}

	for _, name := range i.names {
		if path, err := i.lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", errors.New("no Chrome or Chromium executable found on PATH")
}
