package track

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default tuning values applied by LoadConfig when the file omits them.
const (
	DefaultIntervalMs = 5000
	DefaultMaxAgeMs   = 30000
)

// LoadConfig loads the service configuration from a YAML file and applies
// defaults for omitted tuning values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.ApplyDefaults()

	return &config, nil
}

// Validate checks required fields. Sources drive everything, so at least one
// must be defined, with a unique ID and a positive priority each.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source must be defined")
	}

	seen := make(map[string]struct{}, len(c.Sources))
	needsBroker := false
	for i, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("source[%d].id is required", i)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("source[%d].id %q is duplicated", i, s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Priority < 1 {
			return fmt.Errorf("source[%d].priority must be >= 1 for %s", i, s.ID)
		}
		if s.Topic != "" {
			needsBroker = true
		}
	}

	if needsBroker && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when a source has a topic")
	}

	return nil
}

// ApplyDefaults fills zero-valued tuning fields with the package defaults.
func (c *Config) ApplyDefaults() {
	if c.IntervalMs <= 0 {
		c.IntervalMs = DefaultIntervalMs
	}
	if c.MaxAgeMs <= 0 {
		c.MaxAgeMs = DefaultMaxAgeMs
	}
	if c.ProximityKm <= 0 {
		c.ProximityKm = DefaultProximityKm
	}
	if c.ConfidenceStep <= 0 {
		c.ConfidenceStep = DefaultConfidenceStep
	}
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
