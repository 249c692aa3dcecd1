// Package config loads the mtag YAML configuration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// ConfigVersion is the only configuration schema version accepted.
const ConfigVersion = "1.0"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message  string
	Original error
}

func (e *ConfigError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Original)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.Original
}

// ServerSettings holds the review server settings.
type ServerSettings struct {
	Port int `yaml:"port"`
}

// CatalogSettings holds the NetEase client settings.
type CatalogSettings struct {
	BaseURL            string `yaml:"base_url"`
	Timeout            int    `yaml:"timeout"` // seconds
	SearchLimit        int    `yaml:"search_limit"`
	IncludeTranslation *bool  `yaml:"include_translation"`

	CacheMaxSize int `yaml:"cache_max_size"`
	CacheTTL     int `yaml:"cache_ttl"` // seconds

	RateLimitEnabled  *bool   `yaml:"rate_limit_enabled"`
	RateLimitRequests int     `yaml:"rate_limit_requests"`
	RateLimitWindow   float64 `yaml:"rate_limit_window"` // seconds
}

// SetDefaults fills zero values.
func (c *CatalogSettings) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://music.163.com"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = 15
	}
	if c.SearchLimit == 0 {
		c.SearchLimit = 10
	}
	if c.IncludeTranslation == nil {
		c.IncludeTranslation = boolPtr(true)
	}
	if c.CacheMaxSize == 0 {
		c.CacheMaxSize = 500
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 3600
	}
	if c.RateLimitEnabled == nil {
		c.RateLimitEnabled = boolPtr(true)
	}
	if c.RateLimitRequests == 0 {
		c.RateLimitRequests = 10
	}
	if c.RateLimitWindow == 0 {
		c.RateLimitWindow = 1.0
	}
}

// Validate validates CatalogSettings.
func (c *CatalogSettings) Validate() error {
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return &ConfigError{Message: fmt.Sprintf("catalog.base_url must be an http(s) URL, got %q", c.BaseURL)}
	}
	if c.Timeout < 0 {
		return &ConfigError{Message: "catalog.timeout must be positive"}
	}
	if c.SearchLimit < 1 || c.SearchLimit > 100 {
		return &ConfigError{Message: fmt.Sprintf("catalog.search_limit must be between 1 and 100, got %d", c.SearchLimit)}
	}
	if c.CacheMaxSize < 0 || c.CacheTTL < 0 {
		return &ConfigError{Message: "catalog cache settings must not be negative"}
	}
	if c.RateLimitRequests < 0 || c.RateLimitWindow < 0 {
		return &ConfigError{Message: "catalog rate limit settings must not be negative"}
	}
	return nil
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *CatalogSettings) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// CacheTTLDuration returns CacheTTL as a time.Duration.
func (c *CatalogSettings) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// ScannerSettings holds directory scanning settings.
type ScannerSettings struct {
	ConvertTraditional *bool `yaml:"convert_traditional"`
	Watch              *bool `yaml:"watch"`
	Debounce           int   `yaml:"debounce"` // milliseconds
}

// SetDefaults fills zero values.
func (s *ScannerSettings) SetDefaults() {
	if s.ConvertTraditional == nil {
		s.ConvertTraditional = boolPtr(true)
	}
	if s.Watch == nil {
		s.Watch = boolPtr(true)
	}
	if s.Debounce <= 0 {
		s.Debounce = 500
	}
}

// DebounceDuration returns Debounce as a time.Duration.
func (s *ScannerSettings) DebounceDuration() time.Duration {
	return time.Duration(s.Debounce) * time.Millisecond
}

// MtagConfig represents the main configuration model.
type MtagConfig struct {
	Version  string          `yaml:"version"`
	Server   ServerSettings  `yaml:"server"`
	MusicDir string          `yaml:"music_dir"`
	StateDir string          `yaml:"state_dir"`
	Catalog  CatalogSettings `yaml:"catalog"`
	Scanner  ScannerSettings `yaml:"scanner"`

	// Hash identifies the loaded file content; empty for Default().
	Hash string `yaml:"-"`
}

// Default returns a configuration with every default applied.
func Default() *MtagConfig {
	cfg := &MtagConfig{Version: ConfigVersion}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero values in every section.
func (c *MtagConfig) SetDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.StateDir == "" {
		c.StateDir = ".mtag"
	}
	c.Catalog.SetDefaults()
	c.Scanner.SetDefaults()
}

// Validate validates MtagConfig. Defaults must have been applied.
func (c *MtagConfig) Validate() error {
	if c.Version != ConfigVersion {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid version: %s. Expected %s", c.Version, ConfigVersion),
		}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ConfigError{Message: fmt.Sprintf("server.port out of range: %d", c.Server.Port)}
	}
	return c.Catalog.Validate()
}

func boolPtr(b bool) *bool {
	return &b
}
