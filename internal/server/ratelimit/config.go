package ratelimit

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

type envConfig struct {
	Enabled         bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	DefaultLimit    int           `env:"RATE_LIMIT_DEFAULT_LIMIT" envDefault:"600"`
	DefaultWindow   time.Duration `env:"RATE_LIMIT_DEFAULT_WINDOW" envDefault:"1m"`
	CleanupInterval time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" envDefault:"5m"`
	Whitelist       string        `env:"RATE_LIMIT_WHITELIST"`
	Blacklist       string        `env:"RATE_LIMIT_BLACKLIST"`
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() (*Config, error) {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return nil, fmt.Errorf("failed to parse rate limit environment: %w", err)
	}
	if !ec.Enabled {
		return &Config{Enabled: false}, nil
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    ec.DefaultLimit,
		DefaultWindow:   ec.DefaultWindow,
		CleanupInterval: ec.CleanupInterval,
		Whitelist:       parseIPList(ec.Whitelist),
		Blacklist:       parseIPList(ec.Blacklist),
		EndpointConfigs: DefaultEndpointConfigs(),
	}, nil
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Tier 1: bulk operations that touch many records
		{Path: "/split", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/dispatch/pending", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},

		// Tier 2: per-record webhook from the automation host
		{Path: "/dispatch", Method: "POST", Limit: 300, Window: time.Minute, Burst: 50},

		// Tier 3: reads - handled by default limit
		// Tier 4: health check (unlimited) - handled by special case in matcher
	}
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	if list == "" {
		return result
	}

	ips := strings.Split(list, ",")
	for _, ip := range ips {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}

	return result
}
