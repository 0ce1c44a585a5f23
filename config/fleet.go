package config

import (
	"fmt"
	"time"
)

// FleetConfig tunes the aggregation pass that builds the dashboard snapshot.
type FleetConfig struct {
	// WindowSeconds is the trailing latch window: a raw drowsiness alert
	// keeps a vehicle flagged for this long.
	WindowSeconds float64 `json:"window_seconds"`
	// HistoryPoints is how many trailing samples the snapshot history keeps.
	HistoryPoints int `json:"history_points"`
	// RefreshSeconds is the interval between aggregation passes.
	RefreshSeconds int `json:"refresh_seconds"`
	// FetchLimit caps how many recent records one pass reads.
	FetchLimit int `json:"fetch_limit"`
}

// RefreshInterval returns the aggregation cadence.
func (c FleetConfig) RefreshInterval() time.Duration {
	if c.RefreshSeconds <= 0 {
		return time.Second
	}
	return time.Duration(c.RefreshSeconds) * time.Second
}

// SetDefaults applies sane defaults.
func (c *FleetConfig) SetDefaults() {
	if c.WindowSeconds <= 0 {
		c.WindowSeconds = 300
	}
	if c.HistoryPoints <= 0 {
		c.HistoryPoints = 30
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = 150
	}
}

// Validate checks field ranges.
func (c FleetConfig) Validate() error {
	if c.WindowSeconds <= 0 {
		return fmt.Errorf("window_seconds must be positive")
	}
	if c.HistoryPoints <= 0 {
		return fmt.Errorf("history_points must be positive")
	}
	return nil
}
