// Package config holds all labelfeed configuration. Settings come from an
// optional YAML file, overridden by environment variables; the two API keys
// are required and validated at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is tried when no --config flag is given.
const DefaultPath = "labelfeed.yaml"

// Config holds all labelfeed configuration.
type Config struct {
	// Metrc service
	BaseURL   string `yaml:"base_url"`
	VendorKey string `yaml:"vendor_key"`
	UserKey   string `yaml:"user_key"`

	// Transport tuning
	Timeout     string `yaml:"timeout"`
	MaxRetries  int    `yaml:"max_retries"`
	BackoffBase string `yaml:"backoff_base"`
	BackoffMax  string `yaml:"backoff_max"`
	PageSize    int    `yaml:"page_size"`

	// Export artifact
	ExportPath string `yaml:"export_path"`
}

// Default returns the built-in defaults (Missouri deployment).
func Default() *Config {
	return &Config{
		BaseURL:     "https://api-missouri.metrc.com",
		Timeout:     "30s",
		MaxRetries:  3,
		BackoffBase: "1s",
		BackoffMax:  "8s",
		PageSize:    20,
		ExportPath:  "labelfeed_export.json",
	}
}

// Load reads configuration from path (optional) and applies environment
// overrides. A missing file is only an error when the path was given
// explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine; env vars may carry everything needed.
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("METRC_VENDOR_KEY"); key != "" {
		c.VendorKey = key
	}
	if key := os.Getenv("METRC_USER_KEY"); key != "" {
		c.UserKey = key
	}
	if url := os.Getenv("METRC_BASE_URL"); url != "" {
		c.BaseURL = url
	}
	if path := os.Getenv("LABELFEED_EXPORT"); path != "" {
		c.ExportPath = path
	}
	if size := os.Getenv("LABELFEED_PAGE_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil && n > 0 {
			c.PageSize = n
		}
	}
}

// Validate fails fast when a credential is missing. Called once at startup;
// the keys are immutable afterwards.
func (c *Config) Validate() error {
	var missing []string
	if c.VendorKey == "" {
		missing = append(missing, "vendor key (METRC_VENDOR_KEY)")
	}
	if c.UserKey == "" {
		missing = append(missing, "user key (METRC_USER_KEY)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: %v", missing)
	}
	if c.BaseURL == "" {
		return errors.New("base URL must not be empty")
	}
	return nil
}

// RequestTimeout parses the configured timeout, falling back to the default
// when unset or unparseable.
func (c *Config) RequestTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// Backoff returns the retry backoff base and cap.
func (c *Config) Backoff() (base, max time.Duration) {
	return parseDuration(c.BackoffBase, time.Second), parseDuration(c.BackoffMax, 8*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
