package config

import (
	"fmt"
	"slices"
	"time"
)

// leaseMargin is the minimum slack between lease expiry and the end of a
// send's transport plus commit.
const leaseMargin = 5 * time.Second

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	if c.Database.WriteTimeout <= 0 {
		return fmt.Errorf("database.write_timeout must be > 0 (got %v)", c.Database.WriteTimeout)
	}
	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}
	if err := c.Send.validate(); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if need := c.Send.TransportTimeout + c.Database.WriteTimeout + leaseMargin; c.Send.LeaseTTL < need {
		return fmt.Errorf("send: lease_ttl (%v) must cover transport_timeout plus database.write_timeout plus %v (need %v)",
			c.Send.LeaseTTL, leaseMargin, need)
	}
	if err := c.Conflict.validate(); err != nil {
		return fmt.Errorf("conflict: %w", err)
	}
	if err := c.Anomaly.validate(); err != nil {
		return fmt.Errorf("anomaly: %w", err)
	}
	if c.RateLimit.Enabled && (c.RateLimit.PerMinute <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("ratelimit: per_minute and burst must be > 0 when enabled")
	}
	return nil
}

func (s *SendConfig) validate() error {
	if !slices.Contains([]string{"postgres", "memory"}, s.LeaseBackend) {
		return fmt.Errorf("lease_backend must be postgres or memory (got %q)", s.LeaseBackend)
	}
	if s.LeaseTTL <= 0 {
		return fmt.Errorf("lease_ttl must be > 0 (got %v)", s.LeaseTTL)
	}
	if s.TransportTimeout <= 0 {
		return fmt.Errorf("transport_timeout must be > 0 (got %v)", s.TransportTimeout)
	}
	if s.TransportTimeout >= s.LeaseTTL {
		return fmt.Errorf("transport_timeout (%v) must be shorter than lease_ttl (%v)", s.TransportTimeout, s.LeaseTTL)
	}
	switch s.TransportMode {
	case "stub":
	case "webhook":
		if s.TransportURL == "" {
			return fmt.Errorf("transport_url is required when transport_mode is webhook")
		}
	default:
		return fmt.Errorf("transport_mode must be webhook or stub (got %q)", s.TransportMode)
	}
	return nil
}

func (c *ConflictConfig) validate() error {
	if c.MaxMatchesPerName <= 0 {
		return fmt.Errorf("max_matches_per_name must be > 0 (got %d)", c.MaxMatchesPerName)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0, 1] (got %v)", c.SimilarityThreshold)
	}
	if c.MinSimilarNameLen < 1 {
		return fmt.Errorf("min_similar_name_len must be >= 1 (got %d)", c.MinSimilarNameLen)
	}
	return nil
}

func (a *AnomalyConfig) validate() error {
	if a.MinQuickCount < 0 {
		return fmt.Errorf("min_quick_count must be >= 0 (got %d)", a.MinQuickCount)
	}
	if a.DefaultThreshold <= 0 {
		return fmt.Errorf("default_threshold must be > 0 (got %v)", a.DefaultThreshold)
	}
	if a.DefaultWindow <= 0 {
		return fmt.Errorf("default_window must be > 0 (got %v)", a.DefaultWindow)
	}
	return nil
}
