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

	"github.com/kilianp07/busdepot/core/factory"
	"github.com/kilianp07/busdepot/core/metrics"
	"github.com/kilianp07/busdepot/infra/mqtt"
)

type Config struct {
	Depot     DepotConfig          `json:"depot"`
	Telemetry factory.ModuleConfig `json:"telemetry"`
	MQTT      mqtt.Config          `json:"mqtt"`
	Metrics   metrics.Config       `json:"metrics"`
	History   HistoryConfig        `json:"history"`
	API       APIConfig            `json:"api"`
}

// Load reads the configuration file at path and applies K_ environment
// overrides, e.g. K_DEPOT__NUM_CHARGERS=20. An empty path loads defaults and
// environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
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
	}
	// K_DEPOT__NUM_CHARGERS overrides depot.num_chargers
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every unset section.
func (c *Config) SetDefaults() {
	c.Depot.SetDefaults()
	c.History.SetDefaults()
	c.API.SetDefaults()
	if c.Telemetry.Type == "" {
		c.Telemetry.Type = "random"
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Depot.Validate(); err != nil {
		return fmt.Errorf("depot: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if c.Telemetry.Type == "mqtt" && c.MQTT.Broker == "" {
		if _, ok := c.Telemetry.Conf["mqtt"]; !ok {
			return fmt.Errorf("telemetry: mqtt provider requires mqtt.broker")
		}
	}
	return nil
}
