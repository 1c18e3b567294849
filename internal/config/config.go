package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen          = "127.0.0.1:8080"
	defaultTimezone        = "Asia/Ho_Chi_Minh"
	defaultTime            = "19:00"
	defaultDataDir         = "data"
	defaultReminderCron    = "* * * * *"
	defaultHorizonDays     = 14
	defaultLogLevel        = "info"
	defaultWeatherLocation = "Hanoi"
	defaultForecastDays    = 7
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// WeatherConfig controls date-grounded forecast lookups.
type WeatherConfig struct {
	// DefaultLocation is used when a request names no place.
	DefaultLocation string `yaml:"default_location" json:"default_location"`
	// MaxForecastDays caps how far ahead the upstream provider is asked.
	MaxForecastDays int `yaml:"max_forecast_days" json:"max_forecast_days"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone in which "today" is computed for date
	// resolution (e.g. "Asia/Ho_Chi_Minh").
	Timezone string `yaml:"timezone" json:"timezone"`

	// DefaultTime is the HH:MM used when an event carries no time.
	DefaultTime string `yaml:"default_time" json:"default_time"`

	// DataDir holds events.json.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// ReminderCron is a 5-field cron spec for the reminder sweep.
	ReminderCron string `yaml:"reminder_cron" json:"reminder_cron"`

	// HorizonDays is the default occurrence window for the API.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Weather WeatherConfig `yaml:"weather" json:"weather"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       defaultListen,
		Timezone:     defaultTimezone,
		DefaultTime:  defaultTime,
		DataDir:      defaultDataDir,
		ReminderCron: defaultReminderCron,
		HorizonDays:  defaultHorizonDays,
		LogLevel:     defaultLogLevel,
		Weather: WeatherConfig{
			DefaultLocation: defaultWeatherLocation,
			MaxForecastDays: defaultForecastDays,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.DefaultTime == "" {
		c.DefaultTime = defaultTime
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.ReminderCron == "" {
		c.ReminderCron = defaultReminderCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.Weather.DefaultLocation == "" {
		c.Weather.DefaultLocation = defaultWeatherLocation
	}
	if c.Weather.MaxForecastDays <= 0 {
		c.Weather.MaxForecastDays = defaultForecastDays
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// Location loads the configured timezone, falling back to UTC when the zone
// database does not know it.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// EventsPath is the JSON file holding stored events.
func (c *Config) EventsPath() string {
	return filepath.Join(c.DataDir, "events.json")
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temp file next to path, syncs it, sets
// 0600 and renames it over path. The parent directory is created with 0700.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
