// Package config loads httpkit CLI configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds CLI defaults applied to every request before flags.
type Config struct {
	Timeout         int               `yaml:"timeout,omitempty"`        // milliseconds
	ConnectTimeout  int               `yaml:"connectTimeout,omitempty"` // milliseconds
	FollowRedirects *bool             `yaml:"followRedirects,omitempty"`
	Insecure        *bool             `yaml:"insecure,omitempty"`
	Gzip            *bool             `yaml:"gzip,omitempty"`
	Proxy           string            `yaml:"proxy,omitempty"` // host:port
	Headers         map[string]string `yaml:"headers,omitempty"`
	NoColor         *bool             `yaml:"noColor,omitempty"`
	History         *bool             `yaml:"history,omitempty"`
	HistoryPath     string            `yaml:"historyPath,omitempty"`
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetInsecure returns the insecure TLS setting, defaulting to false
func (c *Config) GetInsecure() bool {
	return getBool(c.Insecure, false)
}

// GetGzip returns the gzip setting, defaulting to false
func (c *Config) GetGzip() bool {
	return getBool(c.Gzip, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetHistory returns whether request history is recorded, defaulting to true
func (c *Config) GetHistory() bool {
	return getBool(c.History, true)
}

// GetHistoryPath returns the history database path, defaulting to
// ~/.httpkit/history.db
func (c *Config) GetHistoryPath() string {
	if c.HistoryPath != "" {
		return c.HistoryPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".httpkit", "history.db")
	}
	return filepath.Join(home, ".httpkit", "history.db")
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".httpkit.yaml",
	".httpkit.yml",
	"httpkit.yaml",
}

// Load loads configuration from the specified path, or searches the current
// directory when path is empty. A missing config file is not an error.
func Load(path string) (*Config, error) {
	if path != "" {
		return loadFromFile(path)
	}
	return FindAndLoad(".")
}

// FindAndLoad searches for a config file in the given directory
func FindAndLoad(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadFromFile(configPath)
		}
	}
	return &Config{}, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.ConnectTimeout > 0 {
		result.ConnectTimeout = other.ConnectTimeout
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.HistoryPath != "" {
		result.HistoryPath = other.HistoryPath
	}

	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.Insecure != nil {
		result.Insecure = other.Insecure
	}
	if other.Gzip != nil {
		result.Gzip = other.Gzip
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.History != nil {
		result.History = other.History
	}

	if len(other.Headers) > 0 {
		result.Headers = make(map[string]string, len(c.Headers)+len(other.Headers))
		for k, v := range c.Headers {
			result.Headers[k] = v
		}
		for k, v := range other.Headers {
			result.Headers[k] = v
		}
	}

	return &result
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
