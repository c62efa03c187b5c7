package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"evparse/internal/atomicfile"
)

const (
	defaultListen          = "127.0.0.1:8080"
	defaultTimezone        = "Local"
	defaultDurationMinutes = 60
	defaultSummary         = "New Event"
	defaultCalendar        = "events.ics"
	defaultAgendaDays      = 7
	defaultLogLevel        = "info"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA timezone text is interpreted in (e.g.
	// "America/New_York"). "Local" uses the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DefaultDurationMinutes is the length of an event that only states
	// its start time.
	DefaultDurationMinutes int `yaml:"default_duration_minutes" json:"default_duration_minutes"`

	// DefaultSummary replaces an empty summary in calendar records.
	DefaultSummary string `yaml:"default_summary" json:"default_summary"`

	// Calendar is the path of the .ics file events are appended to.
	Calendar string `yaml:"calendar" json:"calendar"`

	// AgendaDays is how many days ahead the agenda lists.
	AgendaDays int `yaml:"agenda_days" json:"agenda_days"`

	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:               defaultTimezone,
		DefaultDurationMinutes: defaultDurationMinutes,
		DefaultSummary:         defaultSummary,
		Calendar:               defaultCalendar,
		AgendaDays:             defaultAgendaDays,
		Listen:                 defaultListen,
		LogLevel:               defaultLogLevel,
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.DefaultDurationMinutes <= 0 {
		c.DefaultDurationMinutes = defaultDurationMinutes
	}
	if c.DefaultSummary == "" {
		c.DefaultSummary = defaultSummary
	}
	if c.Calendar == "" {
		c.Calendar = defaultCalendar
	}
	if c.AgendaDays <= 0 {
		c.AgendaDays = defaultAgendaDays
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DefaultDuration returns DefaultDurationMinutes as a duration.
func (c *Config) DefaultDuration() time.Duration {
	return time.Duration(c.DefaultDurationMinutes) * time.Minute
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read and defaults are filled in.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
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

// Save normalizes cfg and writes it to path atomically with 0600 perms.
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
	return atomicfile.Write(path, data, 0o600)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
