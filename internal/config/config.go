// Package config loads and validates hanapilot configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all hanapilot configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Root directory holding browser user-data profiles.
	UserDataPath string `yaml:"user_data_path"`

	// Banking portal entry point.
	LoginURL string `yaml:"login_url"`

	// Spreadsheet ledgers
	DefaultSheetName string        `yaml:"default_sheet_name"`
	Sheets           []SheetConfig `yaml:"sheets"`

	// Certificate login
	Auth AuthConfig `yaml:"auth"`

	// Batch transfer behavior
	Transfer TransferConfig `yaml:"transfer"`

	// Browser session
	Browser BrowserConfig `yaml:"browser"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SheetConfig describes one spreadsheet ledger the operator can pick.
type SheetConfig struct {
	Name      string        `yaml:"name"`
	URL       string        `yaml:"url"`
	SheetName string        `yaml:"sheet_name"`
	Columns   ColumnMapping `yaml:"columns"`
}

// ColumnMapping gives 0-indexed column positions (A=0) for the ledger fields.
type ColumnMapping struct {
	ProductName    int `yaml:"product_name"`
	CustomerName   int `yaml:"customer_name"`
	AccountInfo    int `yaml:"account_info"`
	Amount         int `yaml:"amount"`
	ResidentNumber int `yaml:"resident_number"`
	Status         int `yaml:"status"`
}

// AuthConfig configures the certificate login flow.
type AuthConfig struct {
	// Keywords disambiguating the certificate storage location
	// (e.g. an external drive's volume label).
	CertStoreKeywords []string `yaml:"cert_store_keywords"`

	// Owner name matched against the certificate list.
	OwnerName string `yaml:"owner_name"`

	// Certificate password. Overridable via HANAPILOT_CERT_PASSWORD.
	CertPassword string `yaml:"cert_password"`

	// Withdrawal account password used on the transfer form.
	// Overridable via HANAPILOT_ACCOUNT_PASSWORD.
	AccountPassword string `yaml:"account_password"`

	// Service-account credentials file for the sheet backend.
	CredentialsFile string `yaml:"credentials_file"`
}

// TransferConfig configures the batch processor.
type TransferConfig struct {
	// Maximum ledger rows processed per run.
	MaxRows int `yaml:"max_rows"`

	// When true the engine presses the final submit control itself;
	// when false it stops short and hands off to the operator.
	AutoSubmit bool `yaml:"auto_submit"`
}

// BrowserConfig configures the rod session.
type BrowserConfig struct {
	BinPath        string   `yaml:"bin_path"`
	Headless       bool     `yaml:"headless"`
	LaunchFlags    []string `yaml:"launch_flags"` // "name=value" or bare flag names
	ViewportWidth  int      `yaml:"viewport_width"`
	ViewportHeight int      `yaml:"viewport_height"`

	// Directory receiving debug-*.html document snapshots.
	DumpDir string `yaml:"dump_dir"`
}

// LoggingConfig controls the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Dir        string          `yaml:"dir"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns a Config with working defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:         "hanapilot",
		Version:      "1.0.0",
		UserDataPath: "~/hanapilot/user_data",
		LoginURL:     "https://www.kebhana.com/common/login.do",

		Transfer: TransferConfig{
			MaxRows:    10,
			AutoSubmit: false,
		},

		Browser: BrowserConfig{
			Headless:       false,
			ViewportWidth:  1600,
			ViewportHeight: 900,
			DumpDir:        "debug",
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Dir:       "logs",
			Level:     "info",
		},
	}
}

// DefaultColumns is the standard ledger layout: product E, customer F,
// account I, resident number J, amount K, status Q (0-indexed, A=0).
func DefaultColumns() ColumnMapping {
	return ColumnMapping{
		ProductName:    4,
		CustomerName:   5,
		AccountInfo:    8,
		ResidentNumber: 9,
		Amount:         10,
		Status:         16,
	}
}

// Load reads YAML config from path, applying defaults for missing fields
// and environment overrides for secrets.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Sheets with an all-zero mapping get the standard layout.
	for i := range cfg.Sheets {
		if cfg.Sheets[i].Columns == (ColumnMapping{}) {
			cfg.Sheets[i].Columns = DefaultColumns()
		}
	}

	cfg.UserDataPath = ExpandPath(cfg.UserDataPath)
	cfg.Auth.CredentialsFile = ExpandPath(cfg.Auth.CredentialsFile)
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HANAPILOT_CERT_PASSWORD"); v != "" {
		c.Auth.CertPassword = v
	}
	if v := os.Getenv("HANAPILOT_ACCOUNT_PASSWORD"); v != "" {
		c.Auth.AccountPassword = v
	}
	if v := os.Getenv("HANAPILOT_CREDENTIALS_FILE"); v != "" {
		c.Auth.CredentialsFile = ExpandPath(v)
	}
}

// Validate checks that the configuration is usable for a run.
func (c *Config) Validate() error {
	if len(c.Sheets) == 0 {
		return fmt.Errorf("no sheets configured")
	}
	for i, s := range c.Sheets {
		if s.URL == "" {
			return fmt.Errorf("sheet %d (%s): url required", i, s.Name)
		}
		if s.Columns.Status == s.Columns.Amount {
			return fmt.Errorf("sheet %d (%s): status and amount columns collide", i, s.Name)
		}
	}
	if c.Transfer.MaxRows <= 0 {
		return fmt.Errorf("transfer.max_rows must be positive")
	}
	if c.LoginURL == "" {
		return fmt.Errorf("login_url required")
	}
	return nil
}

// SheetByName returns the configured sheet with the given name, or the first
// sheet when name is empty or unknown.
func (c *Config) SheetByName(name string) (SheetConfig, bool) {
	if len(c.Sheets) == 0 {
		return SheetConfig{}, false
	}
	for _, s := range c.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return c.Sheets[0], name == ""
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return p
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
