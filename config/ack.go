package config

import (
	"fmt"
	"time"
)

// AckConfig tunes operator acknowledgments.
type AckConfig struct {
	// TTLMinutes is how long an acknowledgment suppresses the urgent
	// presentation of a latched vehicle.
	TTLMinutes int `json:"ttl_minutes"`
	// SweepSeconds is the interval between expiry sweeps.
	SweepSeconds int `json:"sweep_seconds"`
}

// TTL returns the acknowledgment lifetime.
func (c AckConfig) TTL() time.Duration {
	if c.TTLMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.TTLMinutes) * time.Minute
}

// SweepInterval returns the expiry sweep cadence.
func (c AckConfig) SweepInterval() time.Duration {
	if c.SweepSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.SweepSeconds) * time.Second
}

// SetDefaults applies sane defaults.
func (c *AckConfig) SetDefaults() {
	if c.TTLMinutes <= 0 {
		c.TTLMinutes = 5
	}
	if c.SweepSeconds <= 0 {
		c.SweepSeconds = 5
	}
}

// Validate checks field ranges.
func (c AckConfig) Validate() error {
	if c.TTLMinutes <= 0 {
		return fmt.Errorf("ttl_minutes must be positive")
	}
	return nil
}
