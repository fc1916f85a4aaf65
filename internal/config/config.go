// Package config loads the enrollment service configuration from YAML, an
// optional .env file and ENROLLMENT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ENROLLMENT_"

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config holds all enrollment service settings.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Timing     TimingConfig     `yaml:"timing"`
	Submission SubmissionConfig `yaml:"submission"`
	Calendar   CalendarConfig   `yaml:"calendar"`
	Logging    LoggingConfig    `yaml:"logging"`
	Theme      ThemeConfig      `yaml:"theme"`
	Form       FormConfig       `yaml:"form"`
	Documents  DocumentsConfig  `yaml:"documents"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	BasePath string `yaml:"base_path"`
	Title    string `yaml:"title"`
}

// StorageConfig selects the draft backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite, postgres
	DSN    string `yaml:"dsn"`
	Key    string `yaml:"key"`
	Table  string `yaml:"table"`
}

// TimingConfig holds the user-facing delays as duration strings.
type TimingConfig struct {
	Autosave    string `yaml:"autosave"`
	Debounce    string `yaml:"debounce"`
	SubmitDelay string `yaml:"submit_delay"`
	ResetDelay  string `yaml:"reset_delay"`
	BannerTTL   string `yaml:"banner_ttl"`
}

// SubmissionConfig selects the remote acceptor. An empty endpoint means the
// simulated acceptor.
type SubmissionConfig struct {
	SuccessRate float64 `yaml:"success_rate"`
	Endpoint    string  `yaml:"endpoint"`
	Timeout     string  `yaml:"timeout"`
}

type CalendarConfig struct {
	Timezone string `yaml:"timezone"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

type ThemeConfig struct {
	Name    string `yaml:"name"`
	Variant string `yaml:"variant"`
}

// FormConfig points at a form definition. Empty means the embedded one.
type FormConfig struct {
	Definition string `yaml:"definition"`
}

// DocumentsConfig points at the terms and privacy documents. Empty paths
// fall back to the embedded documents.
type DocumentsConfig struct {
	Terms   string `yaml:"terms"`
	Privacy string `yaml:"privacy"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     ":8080",
			BasePath: "/",
			Title:    "Student Enrollment",
		},
		Storage: StorageConfig{
			Driver: StorageMemory,
			Key:    "studentFormDraft",
		},
		Timing: TimingConfig{
			Autosave:    "30s",
			Debounce:    "500ms",
			SubmitDelay: "2s",
			ResetDelay:  "3s",
			BannerTTL:   "5s",
		},
		Submission: SubmissionConfig{
			SuccessRate: 0.9,
			Timeout:     "10s",
		},
		Calendar: CalendarConfig{
			Timezone: "UTC",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Theme: ThemeConfig{
			Name: "enrollment",
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load env file %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"ADDR":              &c.Server.Addr,
		"BASE_PATH":         &c.Server.BasePath,
		"TITLE":             &c.Server.Title,
		"STORAGE_DRIVER":    &c.Storage.Driver,
		"STORAGE_DSN":       &c.Storage.DSN,
		"STORAGE_KEY":       &c.Storage.Key,
		"STORAGE_TABLE":     &c.Storage.Table,
		"AUTOSAVE":          &c.Timing.Autosave,
		"DEBOUNCE":          &c.Timing.Debounce,
		"SUBMIT_DELAY":      &c.Timing.SubmitDelay,
		"RESET_DELAY":       &c.Timing.ResetDelay,
		"BANNER_TTL":        &c.Timing.BannerTTL,
		"SUBMIT_ENDPOINT":   &c.Submission.Endpoint,
		"SUBMIT_TIMEOUT":    &c.Submission.Timeout,
		"TIMEZONE":          &c.Calendar.Timezone,
		"LOG_LEVEL":         &c.Logging.Level,
		"THEME":             &c.Theme.Name,
		"THEME_VARIANT":     &c.Theme.Variant,
		"FORM_DEFINITION":   &c.Form.Definition,
		"DOCUMENTS_TERMS":   &c.Documents.Terms,
		"DOCUMENTS_PRIVACY": &c.Documents.Privacy,
	}
	for name, target := range strs {
		if value, ok := os.LookupEnv(EnvPrefix + name); ok && value != "" {
			*target = value
		}
	}

	if raw := os.Getenv(EnvPrefix + "SUCCESS_RATE"); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("config: %sSUCCESS_RATE: %w", EnvPrefix, err)
		}
		c.Submission.SuccessRate = rate
	}
	if raw := os.Getenv(EnvPrefix + "LOG_DEVELOPMENT"); raw != "" {
		dev, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("config: %sLOG_DEVELOPMENT: %w", EnvPrefix, err)
		}
		c.Logging.Development = dev
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "", StorageMemory:
	case StorageSQLite, StoragePostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage driver %q needs a dsn", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q (valid: memory, sqlite, postgres)", c.Storage.Driver)
	}
	if c.Submission.SuccessRate < 0 || c.Submission.SuccessRate > 1 {
		return fmt.Errorf("config: success rate %v outside [0, 1]", c.Submission.SuccessRate)
	}
	if c.Calendar.Timezone != "" {
		if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
			return fmt.Errorf("config: timezone: %w", err)
		}
	}
	return nil
}

// GetAutosave returns the autosave interval. Zero disables autosave.
func (c *Config) GetAutosave() time.Duration {
	return duration(c.Timing.Autosave, 30*time.Second)
}

// GetDebounce returns the live validation delay.
func (c *Config) GetDebounce() time.Duration {
	return duration(c.Timing.Debounce, 500*time.Millisecond)
}

// GetSubmitDelay returns the simulated acceptor delay.
func (c *Config) GetSubmitDelay() time.Duration {
	return duration(c.Timing.SubmitDelay, 2*time.Second)
}

// GetResetDelay returns the delay before a submitted form is cleared.
func (c *Config) GetResetDelay() time.Duration {
	return duration(c.Timing.ResetDelay, 3*time.Second)
}

// GetBannerTTL returns how long non-error banners stay visible.
func (c *Config) GetBannerTTL() time.Duration {
	return duration(c.Timing.BannerTTL, 5*time.Second)
}

// GetSubmitTimeout returns the remote acceptor timeout.
func (c *Config) GetSubmitTimeout() time.Duration {
	return duration(c.Submission.Timeout, 10*time.Second)
}

func duration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
