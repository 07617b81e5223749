package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variables that override file values,
// e.g. MULTICAL_LISTEN.
const EnvPrefix = "MULTICAL"

// CalendarConfig declares a calendar created at startup.
type CalendarConfig struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	// Timezone is an IANA id; empty means the top-level Timezone.
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty" validate:"omitempty,timezone"`
}

// ImportConfig loads an ICS file or URL into a calendar at startup.
type ImportConfig struct {
	Calendar string `yaml:"calendar" json:"calendar" validate:"required"`
	// Source is a local path or an http(s) URL.
	Source string `yaml:"source" json:"source" validate:"required"`
}

// BasicAuthConfig protects every HTTP route except /health. Leaving either
// field empty disables it.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the read API.
	Listen string `yaml:"listen" json:"listen" validate:"required"`

	// Timezone is the default IANA zone for calendars that do not name one.
	Timezone string `yaml:"timezone" json:"timezone" validate:"required,timezone"`

	LogLevel  string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" json:"log_format" validate:"oneof=console json"`

	// StatusCron is a standard five-field cron spec for the periodic
	// busy/available report. Empty disables it.
	StatusCron string `yaml:"status_cron" json:"status_cron"`

	// ICSCacheDir keeps ETag/Last-Modified metadata for remote imports.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir"`

	Calendars []CalendarConfig `yaml:"calendars" json:"calendars" validate:"dive"`
	Imports   []ImportConfig   `yaml:"imports" json:"imports" validate:"dive"`

	// Current is the calendar selected at startup. Empty selects the first.
	Current string `yaml:"current,omitempty" json:"current,omitempty"`

	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

var validate = validator.New()

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "UTC",
		LogLevel:    "info",
		LogFormat:   "console",
		StatusCron:  "*/15 * * * *",
		ICSCacheDir: "./var/ics-cache",
		Calendars:   []CalendarConfig{{Name: "default"}},
		Imports:     []ImportConfig{},
	}
}

// Normalize fills in missing values so that partially-filled configs still
// behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	if c.ICSCacheDir == "" {
		c.ICSCacheDir = "./var/ics-cache"
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarConfig{}
	}
	for i := range c.Calendars {
		if c.Calendars[i].Timezone == "" {
			c.Calendars[i].Timezone = c.Timezone
		}
	}
	if c.Imports == nil {
		c.Imports = []ImportConfig{}
	}
}

// ApplyEnv overrides file values with MULTICAL_* environment variables.
func (c *Config) ApplyEnv() {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if s := v.GetString("listen"); s != "" {
		c.Listen = s
	}
	if s := v.GetString("timezone"); s != "" {
		c.Timezone = s
	}
	if s := v.GetString("log_level"); s != "" {
		c.LogLevel = s
	}
	if s := v.GetString("log_format"); s != "" {
		c.LogFormat = s
	}
	if v.IsSet("status_cron") {
		c.StatusCron = v.GetString("status_cron")
	}
	if s := v.GetString("current"); s != "" {
		c.Current = s
	}
}

// Validate checks field constraints, the cron spec and calendar references.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.StatusCron != "" {
		if _, err := cron.ParseStandard(c.StatusCron); err != nil {
			return fmt.Errorf("invalid status_cron %q: %w", c.StatusCron, err)
		}
	}

	names := make(map[string]bool, len(c.Calendars))
	for _, cal := range c.Calendars {
		if names[cal.Name] {
			return fmt.Errorf("calendar %q is declared twice", cal.Name)
		}
		names[cal.Name] = true
	}
	if c.Current != "" && !names[c.Current] {
		return fmt.Errorf("current calendar %q is not declared", c.Current)
	}
	for _, imp := range c.Imports {
		if !names[imp.Calendar] {
			return fmt.Errorf("import %q targets undeclared calendar %q", imp.Source, imp.Calendar)
		}
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read and normalized.
//
// Environment overrides are applied and the result validated in both cases.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".multical-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
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

func (c *Config) Save(path string) error {
	return Save(path, c)
}
