// Package config provides configuration for serverbookd.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// APIConfig configures the HTTP API server (metrics and store endpoints).
type APIConfig struct {
	// Host is the listen address for the API server. Empty means all interfaces.
	Host string `yaml:"host"`
	// Port is the listen port (1-65535). Default 8888 when api is omitted.
	Port int `yaml:"port"`
}

// StoreConfig overrides settings for a single store.
type StoreConfig struct {
	// Capacity overrides the store's default capacity when > 0.
	Capacity int `yaml:"capacity"`
}

// StoresConfig holds per-store overrides.
type StoresConfig struct {
	Favorites     StoreConfig `yaml:"favorites"`
	History       StoreConfig `yaml:"history"`
	RecentServers StoreConfig `yaml:"recent_servers"`
}

// Config is the root configuration.
type Config struct {
	// DataDir is the directory holding the persisted store files.
	DataDir string `yaml:"data_dir"`
	// LogPath is the path to the log file (JSON, rotated via lumberjack).
	LogPath string `yaml:"log_path"`
	// Stores holds optional per-store capacity overrides.
	Stores StoresConfig `yaml:"stores"`
	// API configures the HTTP server. When nil or zero, defaults to host ""
	// and port 8888.
	API *APIConfig `yaml:"api"`
}

// NewFromFile reads configuration from a YAML file.
func NewFromFile(path string) (*Config, error) {
	b, err := os.ReadFile(path) // #nosec G304 -- path is user-configured
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	c := &Config{}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return c, c.Validate()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.LogPath == "" {
		return fmt.Errorf("log_path is required")
	}
	for _, sc := range []struct {
		name     string
		capacity int
	}{
		{"favorites", c.Stores.Favorites.Capacity},
		{"history", c.Stores.History.Capacity},
		{"recent_servers", c.Stores.RecentServers.Capacity},
	} {
		if sc.capacity < 0 {
			return fmt.Errorf("stores.%s.capacity must be >= 1, got %d", sc.name, sc.capacity)
		}
	}
	if c.API != nil && c.API.Port != 0 {
		if c.API.Port < 1 || c.API.Port > 65535 {
			return fmt.Errorf("api.port must be 1-65535, got %d", c.API.Port)
		}
	}
	return nil
}
