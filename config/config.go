package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the fioctl CLI.
type Config struct {
	API             APIConfig   `yaml:"api"`
	Capacity        int         `yaml:"capacity"`
	Rate            float64     `yaml:"rate"`
	Quality         string      `yaml:"quality"`
	IncludeVersions bool        `yaml:"include_versions"`
	ContentsOnly    bool        `yaml:"contents_only"`
	JournalPath     string      `yaml:"journal_path"`
	Retry           RetryConfig `yaml:"retry"`
}

// APIConfig defines how to reach the asset service.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// RetryConfig defines retry behavior.
type RetryConfig struct {
	Cap time.Duration `yaml:"cap"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Capacity: 10,
		Rate:     10,
		Retry: RetryConfig{
			Cap: 1920 * time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	API             APIConfig       `yaml:"api"`
	Capacity        int             `yaml:"capacity"`
	Rate            float64         `yaml:"rate"`
	Quality         string          `yaml:"quality"`
	IncludeVersions bool            `yaml:"include_versions"`
	ContentsOnly    bool            `yaml:"contents_only"`
	JournalPath     string          `yaml:"journal_path"`
	Retry           yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Cap string `yaml:"cap"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.API.BaseURL != "" {
		cfg.API.BaseURL = yc.API.BaseURL
	}
	if yc.API.Token != "" {
		cfg.API.Token = yc.API.Token
	}
	if yc.Capacity != 0 {
		cfg.Capacity = yc.Capacity
	}
	if yc.Rate != 0 {
		cfg.Rate = yc.Rate
	}
	if yc.Quality != "" {
		cfg.Quality = yc.Quality
	}
	cfg.IncludeVersions = yc.IncludeVersions
	cfg.ContentsOnly = yc.ContentsOnly
	if yc.JournalPath != "" {
		cfg.JournalPath = yc.JournalPath
	}
	if yc.Retry.Cap != "" {
		d, err := time.ParseDuration(yc.Retry.Cap)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.cap: %w", err)
		}
		cfg.Retry.Cap = d
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the FIOCTL_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("FIOCTL_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("FIOCTL_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("FIOCTL_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse FIOCTL_CAPACITY: %w", err)
		}
		c.Capacity = n
	}
	if v := os.Getenv("FIOCTL_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse FIOCTL_RATE: %w", err)
		}
		c.Rate = r
	}
	if v := os.Getenv("FIOCTL_QUALITY"); v != "" {
		c.Quality = v
	}
	if v := os.Getenv("FIOCTL_INCLUDE_VERSIONS"); v != "" {
		c.IncludeVersions = v == "true" || v == "1"
	}
	if v := os.Getenv("FIOCTL_CONTENTS_ONLY"); v != "" {
		c.ContentsOnly = v == "true" || v == "1"
	}
	if v := os.Getenv("FIOCTL_JOURNAL_PATH"); v != "" {
		c.JournalPath = v
	}
	if v := os.Getenv("FIOCTL_RETRY_CAP"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse FIOCTL_RETRY_CAP: %w", err)
		}
		c.Retry.Cap = d
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url is required")
	}
	if c.API.Token == "" {
		return errors.New("config: api.token is required")
	}
	if c.Capacity <= 0 {
		return errors.New("config: capacity must be positive")
	}
	if c.Rate <= 0 {
		return errors.New("config: rate must be positive")
	}
	return nil
}
