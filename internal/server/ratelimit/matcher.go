package ratelimit

import (
	"net/http"
	"strings"
)

// MatchEndpoint returns the configuration that applies to a request, or nil when the
// default limit applies. GET /health is never limited.
//
// An exact path wins over a prefix. A config whose Path ends in "/" is a prefix, and the
// longest matching prefix wins. An empty Method matches any method.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == http.MethodGet {
		return &EndpointConfig{}
	}

	var prefix *EndpointConfig
	for i := range configs {
		cfg := &configs[i]
		if cfg.Method != "" && cfg.Method != method {
			continue
		}
		if cfg.Path == path {
			return cfg
		}
		if strings.HasSuffix(cfg.Path, "/") && strings.HasPrefix(path, cfg.Path) {
			if prefix == nil || len(cfg.Path) > len(prefix.Path) {
				prefix = cfg
			}
		}
	}
	return prefix
}
