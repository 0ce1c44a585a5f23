package config

import "fmt"

// APIConfig defines settings for the HTTP API server.
type APIConfig struct {
	// Addr is the listen address of the REST and websocket server.
	Addr string `json:"addr"`
	// PromAddr is the listen address of the Prometheus scrape endpoint.
	// Empty disables the endpoint.
	PromAddr string `json:"prom_addr"`
	// TelemetryLimit caps GET /api/telemetry responses when the request
	// does not name a limit.
	TelemetryLimit int `json:"telemetry_limit"`
	// CommandLimit caps GET /api/commands responses.
	CommandLimit int `json:"command_limit"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.TelemetryLimit <= 0 {
		c.TelemetryLimit = 150
	}
	if c.CommandLimit <= 0 {
		c.CommandLimit = 20
	}
}

// Validate checks mandatory fields.
func (c APIConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("api addr is required")
	}
	return nil
}
