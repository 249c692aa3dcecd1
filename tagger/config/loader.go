package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides applied by ApplyEnv.
const (
	EnvPort       = "MTAG_PORT"
	EnvMusicDir   = "MTAG_MUSIC_DIR"
	EnvStateDir   = "MTAG_STATE_DIR"
	EnvCatalogURL = "MTAG_CATALOG_URL"
)

const lastDirFile = "last_dir"

// LoadConfig loads, defaults and validates configuration from a YAML file.
func LoadConfig(path string) (*MtagConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &ConfigError{Message: fmt.Sprintf("Configuration file not found: %s", path)}
	}
	if err != nil {
		return nil, &ConfigError{Message: "Error reading configuration file", Original: err}
	}

	var cfg MtagConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Message: "Error parsing YAML file", Original: err}
	}
	cfg.Hash = hashBytes(data)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it is set, otherwise returns Default().
func LoadOrDefault(path string) (*MtagConfig, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadConfig(path)
}

// ApplyEnv loads envFile (if it exists) into the process environment and
// applies the MTAG_* overrides on top of cfg. Existing variables win over the
// file.
func (c *MtagConfig) ApplyEnv(envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return &ConfigError{Message: fmt.Sprintf("Error loading %s", envFile), Original: err}
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Message: fmt.Sprintf("%s is not a number: %q", EnvPort, v)}
		}
		c.Server.Port = port
	}
	if v := os.Getenv(EnvMusicDir); v != "" {
		c.MusicDir = v
	}
	if v := os.Getenv(EnvStateDir); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv(EnvCatalogURL); v != "" {
		c.Catalog.BaseURL = strings.TrimRight(v, "/")
	}
	return c.Validate()
}

// HistoryPath is the SQLite database under StateDir.
func (c *MtagConfig) HistoryPath() string {
	return filepath.Join(c.StateDir, "history.db")
}

// LogPath is the JSON log file under StateDir.
func (c *MtagConfig) LogPath() string {
	return filepath.Join(c.StateDir, "mtag.log")
}

// LastDir returns the last directory the user scanned, falling back to
// MusicDir when none was recorded.
func (c *MtagConfig) LastDir() string {
	data, err := os.ReadFile(filepath.Join(c.StateDir, lastDirFile))
	if err != nil {
		return c.MusicDir
	}
	dir := strings.TrimSpace(string(data))
	if dir == "" {
		return c.MusicDir
	}
	return dir
}

// SaveLastDir records dir for the next start.
func (c *MtagConfig) SaveLastDir(dir string) error {
	if err := os.MkdirAll(c.StateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.StateDir, lastDirFile), []byte(dir), 0644); err != nil {
		log.Printf("WARN: last_dir_save_failed dir=%s error=%v", dir, err)
		return err
	}
	return nil
}
