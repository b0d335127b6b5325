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

	"github.com/dserban/dern/core/dispatch"
	"github.com/dserban/dern/core/metrics"
	"github.com/dserban/dern/core/movement"
	"github.com/dserban/dern/infra/mqtt"
	"github.com/dserban/dern/simulator"
)

// Config is the full service configuration.
type Config struct {
	HTTP      HTTPConfig       `json:"http"`
	MQTT      mqtt.Config      `json:"mqtt"`
	Dispatch  dispatch.Config  `json:"dispatch"`
	Movement  movement.Config  `json:"movement"`
	Metrics   metrics.Config   `json:"metrics"`
	Logging   LoggingConfig    `json:"logging"`
	Simulator simulator.Config `json:"simulator"`
}

// HTTPConfig defines the API listener settings.
type HTTPConfig struct {
	Port string `json:"port"`
}

// SetDefaults fills unset fields.
func (c *HTTPConfig) SetDefaults() {
	if c.Port == "" {
		c.Port = "8000"
	}
}

// Load reads the configuration file and applies environment overrides of
// the form DERN_section__key.
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
	// Optional environment overrides
	if err := k.Load(env.Provider("DERN_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "dern_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every section's unset fields.
func (c *Config) ApplyDefaults() {
	c.HTTP.SetDefaults()
	c.MQTT.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Movement.SetDefaults()
	c.Metrics.SetDefaults()
	c.Logging.SetDefaults()
	c.Simulator.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Movement.Validate(); err != nil {
		return fmt.Errorf("movement: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Simulator.Validate(); err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	return nil
}
