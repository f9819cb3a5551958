// Package config loads pitwall's settings: built-in defaults, then an
// optional YAML file, then PW_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/pitwall/internal/logging"
	"github.com/sydlexius/pitwall/internal/resolver"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  logging.Config `yaml:"logging"`
	Sources  SourcesConfig  `yaml:"sources"`
	Resolver ResolverConfig `yaml:"resolver"`
	Backup   BackupConfig   `yaml:"backup"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SourcesConfig holds the settings of every source adapter.
type SourcesConfig struct {
	OpenF1  OpenF1Config  `yaml:"openf1"`
	Archive ArchiveConfig `yaml:"archive"`
}

// OpenF1Config holds REST source settings. A zero rate disables limiting.
type OpenF1Config struct {
	BaseURL           string  `yaml:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ArchiveConfig points at an Ergast-schema SQLite file. Empty disables the source.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// ResolverConfig holds entity resolution settings.
type ResolverConfig struct {
	NamePolicy    string `yaml:"name_policy"`
	OverridesPath string `yaml:"overrides_path"`
}

// BackupConfig holds pre-sync snapshot settings.
type BackupConfig struct {
	Dir        string `yaml:"dir"`
	Retention  int    `yaml:"retention"`
	MaxAgeDays int    `yaml:"max_age_days"`
	BeforeSync bool   `yaml:"before_sync"`
}

// MetricsConfig holds metrics export settings. An empty path disables the
// textfile export.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "data/pitwall.db",
		},
		Logging: logging.DefaultConfig(),
		Sources: SourcesConfig{
			OpenF1: OpenF1Config{
				BaseURL:           "https://api.openf1.org/v1",
				RequestsPerSecond: 3,
			},
		},
		Resolver: ResolverConfig{
			NamePolicy: string(resolver.PolicyLatest),
		},
		Backup: BackupConfig{
			Dir:        "data/backups",
			Retention:  7,
			MaxAgeDays: 30,
			BeforeSync: true,
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator's --config flag
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	strs := map[string]*string{
		"PW_DB_PATH":          &c.Database.Path,
		"PW_LOG_LEVEL":        &c.Logging.Level,
		"PW_LOG_FORMAT":       &c.Logging.Format,
		"PW_LOG_FILE":         &c.Logging.FilePath,
		"PW_OPENF1_BASE_URL":  &c.Sources.OpenF1.BaseURL,
		"PW_ARCHIVE_PATH":     &c.Sources.Archive.Path,
		"PW_NAME_POLICY":      &c.Resolver.NamePolicy,
		"PW_OVERRIDES_PATH":   &c.Resolver.OverridesPath,
		"PW_BACKUP_DIR":       &c.Backup.Dir,
		"PW_METRICS_TEXTFILE": &c.Metrics.TextfilePath,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PW_BACKUP_RETENTION":    &c.Backup.Retention,
		"PW_BACKUP_MAX_AGE_DAYS": &c.Backup.MaxAgeDays,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("PW_OPENF1_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PW_OPENF1_RPS: %w", err)
		}
		c.Sources.OpenF1.RequestsPerSecond = rps
	}
	if v := os.Getenv("PW_BACKUP_BEFORE_SYNC"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PW_BACKUP_BEFORE_SYNC: %w", err)
		}
		c.Backup.BeforeSync = b
	}
	return nil
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	if _, err := resolver.ParseNamePolicy(c.Resolver.NamePolicy); err != nil {
		return err
	}
	if c.Sources.OpenF1.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid openf1 requests_per_second: %v", c.Sources.OpenF1.RequestsPerSecond)
	}
	if c.Backup.Retention < 1 {
		return fmt.Errorf("invalid backup retention: %d", c.Backup.Retention)
	}
	if c.Backup.MaxAgeDays < 0 {
		return fmt.Errorf("invalid backup max_age_days: %d", c.Backup.MaxAgeDays)
	}
	c.Sources.OpenF1.BaseURL = strings.TrimRight(c.Sources.OpenF1.BaseURL, "/")
	if c.Backup.Dir == "" {
		c.Backup.Dir = filepath.Join(filepath.Dir(c.Database.Path), "backups")
	}
	return nil
}
