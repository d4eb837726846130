// Package config provides configuration structs and utilities for the wikisync application.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config represents the root configuration for the wikisync application.
type Config struct {
	Esa           EsaConfig           `yaml:"esa"`
	Sync          SyncConfig          `yaml:"sync"`
	Watch         WatchConfig         `yaml:"watch"`
	Ledger        LedgerConfig        `yaml:"ledger"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// EsaConfig holds configuration for the remote wiki API.
type EsaConfig struct {
	BaseURL              string        `yaml:"base_url"`
	AccessTokenEncrypted string        `yaml:"access_token_encrypted,omitempty"`
	Timeout              time.Duration `yaml:"timeout"`
	SearchPageSize       int           `yaml:"search_page_size"` // per-file existence query
	IndexPageSize        int           `yaml:"index_page_size"`  // remote index pagination
	CommitMessage        string        `yaml:"commit_message"`
}

// SyncConfig holds configuration for file discovery and pacing.
type SyncConfig struct {
	Extensions          []string      `yaml:"extensions"`
	ExcludeDirs         []string      `yaml:"exclude_dirs"`
	MinCooldown         time.Duration `yaml:"min_cooldown"`
	FallbackCooldown    time.Duration `yaml:"fallback_cooldown"`
	ContinueOnReadError bool          `yaml:"continue_on_read_error"`
}

// WatchConfig holds configuration for watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LedgerConfig holds configuration for the run history database.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // empty means ~/.wikisync/wikisync.db
}

// LoggingConfig holds configuration for application logging.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json, text
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// ObservabilityConfig holds configuration for observability features.
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig holds configuration for tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporter_type"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
	ServiceName  string  `yaml:"service_name"`
}

// Default configuration values.
const (
	DefaultBaseURL          = "https://api.esa.io"
	DefaultTimeout          = 30 * time.Second
	DefaultSearchPageSize   = 20
	DefaultIndexPageSize    = 100
	DefaultCommitMessage    = "sync from esa sync importer"
	DefaultMinCooldown      = 1 * time.Second
	DefaultFallbackCooldown = 60 * time.Second
	DefaultWatchDebounce    = 500 * time.Millisecond
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultLogMaxSizeMB     = 10
	DefaultLogMaxBackups    = 3

	DefaultTracingExporterType = "none"
	DefaultTracingSampleRate   = 1.0
	DefaultTracingServiceName  = "wikisync"
)

// DefaultExtensions are the file extensions synced by default.
var DefaultExtensions = []string{".txt", ".md"}

// DefaultExcludeDirs are directory names never descended into.
var DefaultExcludeDirs = []string{"node_modules", "log", "logs", "tmp"}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

var validTracingExporterTypes = map[string]bool{
	"none":   true,
	"stdout": true,
	"otlp":   true,
}

// NewDefaultConfig creates a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		Esa: EsaConfig{
			BaseURL:        DefaultBaseURL,
			Timeout:        DefaultTimeout,
			SearchPageSize: DefaultSearchPageSize,
			IndexPageSize:  DefaultIndexPageSize,
			CommitMessage:  DefaultCommitMessage,
		},
		Sync: SyncConfig{
			Extensions:       append([]string(nil), DefaultExtensions...),
			ExcludeDirs:      append([]string(nil), DefaultExcludeDirs...),
			MinCooldown:      DefaultMinCooldown,
			FallbackCooldown: DefaultFallbackCooldown,
		},
		Watch: WatchConfig{
			Debounce: DefaultWatchDebounce,
		},
		Ledger: LedgerConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				ExporterType: DefaultTracingExporterType,
				SampleRate:   DefaultTracingSampleRate,
				ServiceName:  DefaultTracingServiceName,
			},
		},
	}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Esa.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("esa: %w", err))
	}
	if err := c.Sync.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sync: %w", err))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, errors.New("watch: debounce must be non-negative"))
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if err := c.Observability.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the EsaConfig is valid.
func (e *EsaConfig) Validate() error {
	var errs []error

	if e.BaseURL == "" {
		errs = append(errs, errors.New("base_url is required"))
	} else {
		parsedURL, err := url.Parse(e.BaseURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid base_url: %w", err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errs = append(errs, errors.New("base_url must use http or https scheme"))
		}
	}
	if e.Timeout < 0 {
		errs = append(errs, errors.New("timeout must be non-negative"))
	}
	if e.SearchPageSize <= 0 {
		errs = append(errs, errors.New("search_page_size must be positive"))
	}
	if e.IndexPageSize <= 0 {
		errs = append(errs, errors.New("index_page_size must be positive"))
	}
	if strings.TrimSpace(e.CommitMessage) == "" {
		errs = append(errs, errors.New("commit_message is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the SyncConfig is valid.
func (s *SyncConfig) Validate() error {
	var errs []error

	if len(s.Extensions) == 0 {
		errs = append(errs, errors.New("at least one extension is required"))
	}
	for _, ext := range s.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("extension %q must start with a dot", ext))
		}
	}
	if s.MinCooldown <= 0 {
		errs = append(errs, errors.New("min_cooldown must be positive"))
	}
	if s.FallbackCooldown <= 0 {
		errs = append(errs, errors.New("fallback_cooldown must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the LoggingConfig is valid.
func (l *LoggingConfig) Validate() error {
	var errs []error

	if l.Level != "" && !validLogLevels[l.Level] {
		errs = append(errs, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", l.Level))
	}
	if l.Format != "" && !validLogFormats[l.Format] {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be one of json, text", l.Format))
	}
	if l.MaxSizeMB < 0 || l.MaxBackups < 0 {
		errs = append(errs, errors.New("max_size_mb and max_backups must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks if the TracingConfig is valid.
func (t *TracingConfig) Validate() error {
	var errs []error

	if t.ExporterType != "" && !validTracingExporterTypes[t.ExporterType] {
		errs = append(errs, fmt.Errorf("invalid exporter_type %q: must be one of none, stdout, otlp", t.ExporterType))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("sample_rate %v must be between 0.0 and 1.0", t.SampleRate))
	}
	if t.Enabled && t.ExporterType == "otlp" && t.OTLPEndpoint == "" {
		errs = append(errs, errors.New("otlp_endpoint is required when exporter_type is otlp"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
