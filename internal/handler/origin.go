package handler

import (
	"strings"

	"dojo/internal/configs"
)

// OriginPolicy decides which browser origins may open sockets and call the API.
// The websocket upgrader and CORS share one instance.
type OriginPolicy struct {
	allowAll bool
	prefixes []string
	suffixes []string
}

func NewOriginPolicy(cfg *configs.AppConfig) *OriginPolicy {
	return &OriginPolicy{
		allowAll: cfg.IsDevelopment(),
		prefixes: cfg.AllowedOrigins,
		suffixes: cfg.AllowedOriginSuffixes,
	}
}

// Allowed reports whether origin passes the policy. Requests without an Origin header
// come from non-browser clients and are allowed.
func (p *OriginPolicy) Allowed(origin string) bool {
	if origin == "" || p.allowAll {
		return true
	}

	for _, prefix := range p.prefixes {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}

	for _, suffix := range p.suffixes {
		if strings.HasSuffix(origin, suffix) {
			return true
		}
	}

	return false
}
