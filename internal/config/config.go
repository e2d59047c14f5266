package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"whisperdrop/internal/drop"
	appLog "whisperdrop/internal/log"
)

const (
	defaultListen          = "127.0.0.1:8080"
	defaultTimezone        = "America/New_York"
	defaultReleaseTime     = "13:00"
	defaultMaxUpcomingDays = 14
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
	defaultRatePerSecond   = 20
	defaultRateBurst       = 40
)

// RateLimitConfig bounds request throughput on /api/* endpoints.
type RateLimitConfig struct {
	// PerSecond is the sustained request rate. Zero or negative disables limiting.
	PerSecond float64 `yaml:"per_second" json:"per_second"`
	// Burst is the token bucket size.
	Burst int `yaml:"burst" json:"burst"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used when a caller sends no zone or an
	// unknown one (e.g. "America/New_York").
	Timezone string `yaml:"timezone" json:"timezone"`

	// ReleaseTime is the zone-local "HH:MM" at which each day's drop unlocks.
	ReleaseTime string `yaml:"release_time" json:"release_time"`

	// CatalogPath points at a YAML catalog. Empty uses the built-in catalog.
	CatalogPath string `yaml:"catalog_path" json:"catalog_path"`

	// MaxUpcomingDays caps the days parameter of /api/upcoming and the
	// iCalendar feed.
	MaxUpcomingDays int `yaml:"max_upcoming_days" json:"max_upcoming_days"`

	// Announce enables the cron job that logs each drop as it unlocks in
	// the default zone.
	Announce bool `yaml:"announce" json:"announce"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format" json:"log_format"`

	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          defaultListen,
		Timezone:        defaultTimezone,
		ReleaseTime:     defaultReleaseTime,
		CatalogPath:     "",
		MaxUpcomingDays: defaultMaxUpcomingDays,
		Announce:        true,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
		RateLimit: RateLimitConfig{
			PerSecond: defaultRatePerSecond,
			Burst:     defaultRateBurst,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.ReleaseTime == "" {
		c.ReleaseTime = defaultReleaseTime
	}
	if c.MaxUpcomingDays <= 0 {
		c.MaxUpcomingDays = defaultMaxUpcomingDays
	}
	if c.MaxUpcomingDays > drop.MaxUpcoming {
		c.MaxUpcomingDays = drop.MaxUpcoming
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	switch c.LogFormat {
	case "console", "json":
		// ok
	default:
		c.LogFormat = defaultLogFormat
	}
	if c.RateLimit.PerSecond > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = int(c.RateLimit.PerSecond)
		if c.RateLimit.Burst < 1 {
			c.RateLimit.Burst = 1
		}
	}
}

// Validate reports values Normalize can not repair: an unknown time zone,
// a malformed release time or an unknown log level.
func (c *Config) Validate() error {
	var errs []error
	if _, err := drop.LoadZone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if _, err := drop.ParseBoundary(c.ReleaseTime); err != nil {
		errs = append(errs, err)
	}
	if _, err := appLog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// Boundary returns the parsed release time. Call Validate first.
func (c *Config) Boundary() (drop.Boundary, error) {
	return drop.ParseBoundary(c.ReleaseTime)
}

// Load reads and normalizes the YAML config at path. On first run, when the
// file does not exist yet, the defaults are written there and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
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
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save normalizes cfg and writes it to path as YAML with 0600 permissions.
// The parent directory is created with 0700 if missing.
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
		return fmt.Errorf("encode config: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeFileAtomic replaces path with data so readers never observe a
// partially written file.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".whisperdrop-config-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(perm); err != nil {
		return err
	}
	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
