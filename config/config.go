// Package config loads and validates the service configuration from a file
// with environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/fleetguard/fleetguard/core/metrics"
	"github.com/fleetguard/fleetguard/infra/mqtt"
)

// Config is the root of the service configuration.
type Config struct {
	API     APIConfig      `json:"api"`
	Store   StoreConfig    `json:"store"`
	Fleet   FleetConfig    `json:"fleet"`
	Ack     AckConfig      `json:"ack"`
	MQTT    mqtt.Config    `json:"mqtt"`
	Metrics metrics.Config `json:"metrics"`
	Sentry  SentryConfig   `json:"sentry"`
}

// Load reads the file at path (yaml or json by extension), applies FG_*
// environment overrides (FG_STORE__BACKEND=sqlite sets store.backend), and
// validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("FG_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "fg_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.API.SetDefaults()
	cfg.Store.SetDefaults()
	cfg.Fleet.SetDefaults()
	cfg.Ack.SetDefaults()
	if err := cfg.API.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Fleet.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Ack.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
