// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Defaults applied by MergeWithDefaults when neither flags, file nor environment set a value.
const (
	DefaultBatchSize     = 50
	DefaultConcurrency   = 4
	DefaultMaxAttempts   = 3
	DefaultMailerSendURL = "https://api.mailersend.com"
	DefaultFromEmail     = "recruitment@weekday.com"
	DefaultFromName      = "Weekday Recruiting"
)

// Config represents the CLI configuration that can be loaded from a JSON file or the environment.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Storage
	DatabaseURL string `json:"database_url,omitempty" env:"DATABASE_URL"` // postgres://... or sqlite:<path>

	// Email
	MailerSendAPIKey  string  `json:"mailersend_api_key,omitempty" env:"MAILERSEND_API_KEY"`
	MailerSendURL     string  `json:"mailersend_url,omitempty" env:"MAILERSEND_URL"`
	FromEmail         string  `json:"from_email,omitempty" env:"FROM_EMAIL"`
	FromName          string  `json:"from_name,omitempty" env:"FROM_NAME"`
	SendRatePerSecond float64 `json:"send_rate_per_second,omitempty" env:"SEND_RATE_PER_SECOND"` // 0 means unlimited

	// Batching
	BatchSize   int `json:"batch_size,omitempty" env:"BATCH_SIZE"`     // records per create/delete call, at most 50
	Concurrency int `json:"concurrency,omitempty" env:"CONCURRENCY"`   // parallel dispatches
	MaxAttempts int `json:"max_attempts,omitempty" env:"MAX_ATTEMPTS"` // send attempts per record

	// Behavior
	DeleteUnprocessable bool `json:"delete_unprocessable,omitempty" env:"DELETE_UNPROCESSABLE"` // delete masters with no rounds
	Verbose             bool `json:"verbose,omitempty" env:"VERBOSE"`                           // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by the commands that need them after merging.
func (c *Config) Validate() error {
	// Validate numeric ranges
	if c.BatchSize < 0 || c.BatchSize > DefaultBatchSize {
		return fmt.Errorf("config error: 'batch_size' must be between 0 and %d", DefaultBatchSize)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config error: 'concurrency' must be non-negative")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("config error: 'max_attempts' must be non-negative")
	}
	if c.SendRatePerSecond < 0 {
		return fmt.Errorf("config error: 'send_rate_per_second' must be non-negative")
	}

	if c.DatabaseURL != "" && !supportedDatabaseURL(c.DatabaseURL) {
		return fmt.Errorf("config error: 'database_url' must start with postgres://, postgresql:// or sqlite:")
	}
	if c.MailerSendURL != "" {
		u, err := url.Parse(c.MailerSendURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config error: invalid 'mailersend_url': %s", c.MailerSendURL)
		}
	}
	if c.FromEmail != "" && !strings.Contains(c.FromEmail, "@") {
		return fmt.Errorf("config error: invalid 'from_email': %s", c.FromEmail)
	}

	return nil
}

func supportedDatabaseURL(u string) bool {
	for _, prefix := range []string{"postgres://", "postgresql://", "sqlite:"} {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return false
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults,
// then from the package defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.MailerSendAPIKey == "" {
		result.MailerSendAPIKey = defaults.MailerSendAPIKey
	}
	if result.MailerSendURL == "" {
		result.MailerSendURL = firstNonEmpty(defaults.MailerSendURL, DefaultMailerSendURL)
	}
	if result.FromEmail == "" {
		result.FromEmail = firstNonEmpty(defaults.FromEmail, DefaultFromEmail)
	}
	if result.FromName == "" {
		result.FromName = firstNonEmpty(defaults.FromName, DefaultFromName)
	}

	// Numeric fields: use default if zero
	if result.BatchSize == 0 {
		result.BatchSize = firstPositive(defaults.BatchSize, DefaultBatchSize)
	}
	if result.Concurrency == 0 {
		result.Concurrency = firstPositive(defaults.Concurrency, DefaultConcurrency)
	}
	if result.MaxAttempts == 0 {
		result.MaxAttempts = firstPositive(defaults.MaxAttempts, DefaultMaxAttempts)
	}
	if result.SendRatePerSecond == 0 {
		result.SendRatePerSecond = defaults.SendRatePerSecond
	}

	// Bool fields: true in either source wins
	result.DeleteUnprocessable = result.DeleteUnprocessable || defaults.DeleteUnprocessable
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
