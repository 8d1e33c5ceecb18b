package track

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		configYAML  string
		shouldError bool
		errorMsg    string
	}{
		{
			name: "valid config",
			configYAML: `mqtt:
  broker: "mqtt://localhost:1883"
  publishPrefix: "skyfuse"
  clientId: "test-client"

sources:
  - id: local
    priority: 3
    url: "http://localhost:8080/data/aircraft.json"
  - id: network-secondary
    priority: 2
    topic: "feeds/secondary/aircraft"
  - id: network-tertiary
    priority: 1
    url: "https://example.net/aircraft.json"
`,
			shouldError: false,
		},
		{
			name: "no sources defined",
			configYAML: `mqtt:
  broker: "mqtt://localhost:1883"

sources: []
`,
			shouldError: true,
			errorMsg:    "at least one source must be defined",
		},
		{
			name: "missing source id",
			configYAML: `sources:
  - priority: 3
    url: "http://localhost:8080/data/aircraft.json"
`,
			shouldError: true,
			errorMsg:    "source[0].id is required",
		},
		{
			name: "duplicate source id",
			configYAML: `sources:
  - id: local
    priority: 3
  - id: local
    priority: 2
`,
			shouldError: true,
			errorMsg:    "source[1].id \"local\" is duplicated",
		},
		{
			name: "priority below one",
			configYAML: `sources:
  - id: local
    priority: 0
`,
			shouldError: true,
			errorMsg:    "source[0].priority must be >= 1 for local",
		},
		{
			name: "topic source without broker",
			configYAML: `sources:
  - id: network-secondary
    priority: 2
    topic: "feeds/secondary/aircraft"
`,
			shouldError: true,
			errorMsg:    "mqtt.broker is required when a source has a topic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.configYAML)
			config, err := LoadConfig(path)

			if tt.shouldError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, config)
		})
	}
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `sources:
  - id: local
    priority: 3
    url: "http://localhost:8080/data/aircraft.json"
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultIntervalMs, config.IntervalMs)
	assert.Equal(t, int64(DefaultMaxAgeMs), config.MaxAgeMs)
	assert.Equal(t, DefaultProximityKm, config.ProximityKm)
	assert.Equal(t, DefaultConfidenceStep, config.ConfidenceStep)
}

func TestLoadConfig_ExplicitTuningKept(t *testing.T) {
	path := writeConfigFile(t, `intervalMs: 2000
maxAgeMs: 60000
proximityKm: 0.5
confidenceStep: 0.2
sources:
  - id: local
    priority: 3
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2000, config.IntervalMs)
	assert.Equal(t, int64(60000), config.MaxAgeMs)
	assert.Equal(t, 0.5, config.ProximityKm)
	assert.Equal(t, 0.2, config.ConfidenceStep)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "sources: [this is: not yaml")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config YAML")
}

func TestConfig_GetSourceByID(t *testing.T) {
	config := testConfig()

	src := config.GetSourceByID("network-secondary")
	require.NotNil(t, src)
	assert.Equal(t, 2, src.Priority)

	assert.Nil(t, config.GetSourceByID("missing"))
}

func TestConfig_Priorities(t *testing.T) {
	got := testConfig().Priorities()
	assert.Equal(t, map[string]int{
		"local":             3,
		"network-secondary": 2,
		"network-tertiary":  1,
	}, got)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	original := testConfig()
	original.MQTT.Broker = "mqtt://localhost:1883"

	require.NoError(t, SaveConfig(path, original))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, original.Sources, loaded.Sources)
	assert.Equal(t, "mqtt://localhost:1883", loaded.MQTT.Broker)
}
