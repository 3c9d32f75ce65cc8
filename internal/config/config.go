// Package config loads and validates the optional .civicdata YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when the config file is absent or partial.
const (
	DefaultTimeout   = 60 * time.Second
	DefaultMaxOutput = 1 << 20 // 1 MB per stream
	DefaultPython    = "python3"
	DefaultBaseURL   = "https://www.liverpoolcivicdata.com"
	DefaultPlotRoute = "/temp/plot"
	DefaultAPIKeyEnv = "CKAN_USER_API_KEY"
)

// Config holds the parsed .civicdata configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int        `yaml:"version"`
	RawTimeout   string     `yaml:"timeout"`    // e.g. "60s", "5m"
	RawMaxOutput int        `yaml:"max_output"` // bytes per captured stream
	Python       string     `yaml:"python"`     // interpreter binary
	BaseURL      string     `yaml:"base_url"`   // public base URL for persisted plots
	PlotDir      string     `yaml:"plot_dir"`   // publicly servable plot directory
	CacheDir     string     `yaml:"cache_dir"`  // resource cache directory
	CKAN         CKANConfig `yaml:"ckan"`
}

// CKANConfig controls access to the catalog API.
type CKANConfig struct {
	BaseURL   string `yaml:"base_url"`    // e.g. https://www.liverpoolcivicdata.com/api/3
	APIKeyEnv string `yaml:"api_key_env"` // environment variable holding the API key
}

// Timeout returns the configured script timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured output cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// PythonBin returns the configured interpreter or the default.
func (c *Config) PythonBin() string {
	if c.Python != "" {
		return c.Python
	}
	return DefaultPython
}

// PublicBaseURL returns the base URL under which persisted plots are
// reachable.
func (c *Config) PublicBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return DefaultBaseURL
}

// PlotDirectory returns the publicly servable plot directory.
func (c *Config) PlotDirectory() string {
	if c.PlotDir != "" {
		return c.PlotDir
	}
	return filepath.Join(os.TempDir(), "plot")
}

// CacheDirectory returns where fetched resource content is cached.
// Executed scripts read cached files from here by the
// <resource_id>.<ext> convention.
func (c *Config) CacheDirectory() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return os.TempDir()
}

// CKANBaseURL returns the catalog API root.
func (c *Config) CKANBaseURL() string {
	if c.CKAN.BaseURL != "" {
		return c.CKAN.BaseURL
	}
	return c.PublicBaseURL() + "/api/3"
}

// CKANAPIKey resolves the catalog API key from the environment.
// An empty key means unauthenticated access.
func (c *Config) CKANAPIKey() string {
	env := c.CKAN.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv
	}
	return os.Getenv(env)
}

// Load reads the .civicdata file from dir. A missing file yields a
// default Config without error.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ".civicdata")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading .civicdata: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing .civicdata: %w", err)
	}
	return cfg, nil
}
