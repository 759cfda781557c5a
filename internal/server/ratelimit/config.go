// Maps requests to rate limit tiers.

package ratelimit

import (
	"net/http"

	"github.com/maruel/jsonstore/internal/config"
)

// Tier is a named limiter.
type Tier struct {
	Name    string
	Limiter *Limiter
}

// Config holds the limiters for reads and writes. A nil tier is unlimited.
type Config struct {
	Read  *Tier
	Write *Tier
}

// NewConfig creates the tiers described by limits. A rate of 0 disables the
// tier.
func NewConfig(limits config.RateLimits) *Config {
	c := &Config{}
	if limits.ReadPerMin > 0 {
		c.Read = &Tier{Name: "read", Limiter: NewLimiter(limits.ReadPerMin, limits.Burst)}
	}
	if limits.WritePerMin > 0 {
		c.Write = &Tier{Name: "write", Limiter: NewLimiter(limits.WritePerMin, limits.Burst)}
	}
	return c
}

// Match returns the tier for a request, or nil when it is not rate limited.
func (c *Config) Match(method, path string) *Tier {
	if c == nil || path == "/api/health" || path == "/metrics" {
		return nil
	}
	switch method {
	case http.MethodGet, http.MethodHead:
		return c.Read
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return c.Write
	}
	return nil
}

// Close stops all limiter goroutines.
func (c *Config) Close() {
	if c == nil {
		return
	}
	for _, t := range []*Tier{c.Read, c.Write} {
		if t != nil {
			t.Limiter.Close()
		}
	}
}
