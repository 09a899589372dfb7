package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"fmarket_nav/internal/config"
	"fmarket_nav/internal/fmarket"
	"fmarket_nav/internal/sheets"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

// DefaultConfigFile is read when FMARKET_CONFIG is unset.
const DefaultConfigFile = "fmarket.yaml"

// Config is the whole application configuration. Values come from the YAML
// file first and are then overridden by any environment variable that is set.
type Config struct {
	Email           string `yaml:"email" envconfig:"FMARKET_EMAIL" validate:"required,email"`
	Password        string `yaml:"password" envconfig:"FMARKET_PASSWORD" validate:"required"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"GOOGLE_CREDENTIALS_FILE" validate:"required"`
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID" validate:"required"`
	WorksheetTitle  string `yaml:"worksheet" envconfig:"WORKSHEET_TITLE"`
	ValueInput      string `yaml:"value_input" envconfig:"SHEETS_VALUE_INPUT" validate:"oneof=RAW USER_ENTERED"`

	ScrapeTimeout  time.Duration `yaml:"scrape_timeout" envconfig:"SCRAPE_TIMEOUT" validate:"gte=0"`
	InstallTimeout time.Duration `yaml:"install_timeout" envconfig:"INSTALL_TIMEOUT" validate:"gte=0"`
	SheetTimeout   time.Duration `yaml:"sheet_timeout" envconfig:"SHEET_TIMEOUT" validate:"gte=0"`
	ExportDir      string        `yaml:"export_dir" envconfig:"EXPORT_DIR"`

	Browser BrowserConfig `yaml:"browser" envconfig:"BROWSER"`
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Notify  NotifyConfig  `yaml:"notify" envconfig:"NTFY"`
}

type BrowserConfig struct {
	ExecPath       string        `yaml:"exec_path" envconfig:"EXEC_PATH"`
	InstallCommand string        `yaml:"install_command" envconfig:"INSTALL_COMMAND"`
	Headless       bool          `yaml:"headless" envconfig:"HEADLESS"`
	NoSandbox      bool          `yaml:"no_sandbox" envconfig:"NO_SANDBOX"`
	LoginURL       string        `yaml:"login_url" envconfig:"LOGIN_URL" validate:"required,url"`
	FilterText     string        `yaml:"filter_text" envconfig:"FILTER_TEXT" validate:"required"`
	SettleDelay    time.Duration `yaml:"settle_delay" envconfig:"SETTLE_DELAY" validate:"gte=0"`
	FilterWait     time.Duration `yaml:"filter_wait" envconfig:"FILTER_WAIT" validate:"gte=0"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

type NotifyConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	URL      string `yaml:"url" envconfig:"URL" validate:"omitempty,url"`
	Topic    string `yaml:"topic" envconfig:"TOPIC" validate:"required_if=Enabled true"`
	Priority string `yaml:"priority" envconfig:"PRIORITY"`
}

// DefaultConfig holds every value that has a sensible default.
func DefaultConfig() Config {
	opts := fmarket.DefaultOptions()
	return Config{
		ValueInput:     sheets.InputRaw,
		ScrapeTimeout:  config.DefaultResilienceConfig.Scrape.Timeout,
		InstallTimeout: config.DefaultResilienceConfig.Install.Timeout,
		SheetTimeout:   config.DefaultResilienceConfig.SheetRead.Timeout,
		ExportDir:      "exports",
		Browser: BrowserConfig{
			Headless:    opts.Headless,
			LoginURL:    opts.LoginURL,
			FilterText:  opts.FilterText,
			SettleDelay: opts.SettleDelay,
			FilterWait:  opts.FilterWait,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Notify: NotifyConfig{
			URL:   "https://ntfy.sh",
			Topic: "fmarket-nav",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if it
// exists) and the environment. An empty path means FMARKET_CONFIG or
// DefaultConfigFile. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = GetEnvWithDefault("FMARKET_CONFIG", DefaultConfigFile)
	}
	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", path).Msg("No config file; using defaults and environment")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("Loaded config file")
	return nil
}

var validate = validator.New()

// Validate checks everything a sync run needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Resilience applies the configured timeouts to the default bounds.
func (c *Config) Resilience() config.ResilienceConfig {
	return config.DefaultResilienceConfig.WithTimeouts(c.ScrapeTimeout, c.InstallTimeout, c.SheetTimeout)
}

// ScraperOptions maps the browser section onto scraper options.
func (c *Config) ScraperOptions() fmarket.Options {
	opts := fmarket.DefaultOptions()
	opts.LoginURL = c.Browser.LoginURL
	opts.FilterText = c.Browser.FilterText
	opts.SettleDelay = c.Browser.SettleDelay
	opts.FilterWait = c.Browser.FilterWait
	opts.Headless = c.Browser.Headless
	opts.NoSandbox = c.Browser.NoSandbox
	return opts
}

// GetEnvWithDefault fetches an environment variable with a default fallback.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
