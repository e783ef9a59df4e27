// Package config loads srrd configuration.
// Values are resolved from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (SRRD_*)
// 3. Project config (.srrd/config.yaml in cwd, or SRRD_CONFIG)
// 4. Home config (~/.srrd/config.yaml)
// 5. Defaults
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
)

// Config holds all srrd configuration.
type Config struct {
	// DataDir holds the workflow database. Default: ~/.srrd
	DataDir string `yaml:"data_dir" json:"data_dir" validate:"required"`

	// TaxonomyFile replaces the built-in taxonomy when set.
	TaxonomyFile string `yaml:"taxonomy_file" json:"taxonomy_file"`

	// LogLevel is one of debug, info, warn, error. Default: info
	LogLevel string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`

	// RecentWindow is how many recent calls pattern detection inspects.
	RecentWindow int `yaml:"recent_window" json:"recent_window" validate:"gte=1"`

	// BusyTimeoutMS is the SQLite busy timeout in milliseconds.
	BusyTimeoutMS int `yaml:"busy_timeout_ms" json:"busy_timeout_ms" validate:"gte=0"`
}

const (
	defaultLogLevel      = "info"
	defaultRecentWindow  = 5
	defaultBusyTimeoutMS = 5000
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DataDir:       storage.DefaultConfig().DataDir,
		LogLevel:      defaultLogLevel,
		RecentWindow:  defaultRecentWindow,
		BusyTimeoutMS: defaultBusyTimeoutMS,
	}
}

// Load resolves configuration with proper precedence.
// Missing config files are skipped; malformed ones are an error.
func Load(flagOverrides *Config) (*Config, error) {
	cfg := Default()

	for _, path := range []string{homeConfigPath(), projectConfigPath()} {
		file, err := loadFromPath(path)
		if err != nil {
			return nil, err
		}
		if file != nil {
			cfg = merge(cfg, file)
		}
	}

	cfg, err := applyEnv(cfg)
	if err != nil {
		return nil, err
	}
	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Store returns the storage configuration.
func (c *Config) Store() storage.Config {
	return storage.Config{
		DataDir:     c.DataDir,
		BusyTimeout: time.Duration(c.BusyTimeoutMS) * time.Millisecond,
	}
}

func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".srrd", "config.yaml")
}

func projectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("SRRD_CONFIG")); override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".srrd", "config.yaml")
}

// loadFromPath reads a YAML config file. A missing file yields nil, nil.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) (*Config, error) {
	if v := os.Getenv("SRRD_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("SRRD_TAXONOMY_FILE"); v != "" {
		cfg.TaxonomyFile = v
	}
	if v := os.Getenv("SRRD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("SRRD_RECENT_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: SRRD_RECENT_WINDOW: %w", err)
		}
		cfg.RecentWindow = n
	}
	return cfg, nil
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeInt overwrites dst with src when src is non-zero.
func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.DataDir, src.DataDir)
	mergeStr(&dst.TaxonomyFile, src.TaxonomyFile)
	mergeStr(&dst.LogLevel, src.LogLevel)
	mergeInt(&dst.RecentWindow, src.RecentWindow)
	mergeInt(&dst.BusyTimeoutMS, src.BusyTimeoutMS)
	return dst
}
