package track

import "strings"

// Report is one source's observation of one aircraft at one instant, as it
// appears on the wire (readsb/dump1090-style JSON). Source identity is not
// part of the wire shape; the coordinator injects it when flattening a
// snapshot.
type Report struct {
	HexID       string  `json:"hex,omitempty"`    // ICAO 24-bit address, preferred identifier
	Callsign    string  `json:"flight,omitempty"` // fallback identifier when hex is absent
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Altitude    float64 `json:"altitude"`
	GroundSpeed float64 `json:"gs"`
	Heading     float64 `json:"track"` // degrees, 0-360
	Origin      string  `json:"origin,omitempty"`
	Destination string  `json:"destination,omitempty"`
	ObservedAt  int64   `json:"observedAt,omitempty"` // unix milliseconds
}

// Key returns the identity used to group reports: the hex address when
// present, otherwise the trimmed callsign. An empty key means the report
// carries no usable identity and is excluded from fusion.
func (r *Report) Key() string {
	if r.HexID != "" {
		return r.HexID
	}
	return strings.TrimSpace(r.Callsign)
}

// SourcedReport is a Report tagged with the source it came from and that
// source's configured priority.
type SourcedReport struct {
	Report
	SourceID string
	Priority int
}

// FusedAircraft is the reconciled state of one aircraft after merging all
// reports that share an entity key within a batch.
type FusedAircraft struct {
	HexID          string  `json:"hex,omitempty"`
	Callsign       string  `json:"flight,omitempty"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Altitude       float64 `json:"altitude"`
	GroundSpeed    float64 `json:"gs"`
	Heading        float64 `json:"track"`
	Origin         string  `json:"origin,omitempty"`
	Destination    string  `json:"destination,omitempty"`
	ObservedAt     int64   `json:"observedAt"`     // max across contributing reports
	SourcePriority int     `json:"sourcePriority"` // priority of the winning source
	Confidence     float64 `json:"confidence"`     // corroboration score in [0,1]
}

// Key returns the fused aircraft's entity key (hex preferred, callsign fallback).
func (a *FusedAircraft) Key() string {
	if a.HexID != "" {
		return a.HexID
	}
	return strings.TrimSpace(a.Callsign)
}

// SourcePayload is one source's contribution to a snapshot: an optional list
// of aircraft reports.
type SourcePayload struct {
	Aircraft []Report `json:"aircraft"`
}

// Snapshot is one multi-source batch, keyed by source ID. A nil payload or an
// empty aircraft list is a valid (empty) contribution.
type Snapshot map[string]*SourcePayload

// ProcessingStats describes one completed processing cycle.
type ProcessingStats struct {
	LatencyMs   int64 `json:"latencyMs"`
	OutputCount int   `json:"outputCount"`
	CacheSize   int   `json:"cacheSize"`
}

// SourceConfig defines one data source from the config file. Exactly how the
// source is driven depends on which of URL/Topic is set: a URL source is
// polled over HTTP each cycle, a Topic source pushes payloads over MQTT.
type SourceConfig struct {
	ID       string `yaml:"id" json:"id"`
	Priority int    `yaml:"priority" json:"priority"` // higher = more trusted
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`
	Topic    string `yaml:"topic,omitempty" json:"topic,omitempty"`
}

// MQTTConfig holds MQTT connection settings.
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config represents the full configuration file.
type Config struct {
	MQTT           MQTTConfig     `yaml:"mqtt" json:"mqtt"`
	IntervalMs     int            `yaml:"intervalMs,omitempty" json:"intervalMs,omitempty"`         // poll cadence (default 5000)
	MaxAgeMs       int64          `yaml:"maxAgeMs,omitempty" json:"maxAgeMs,omitempty"`             // cache entry lifetime (default 30000)
	ProximityKm    float64        `yaml:"proximityKm,omitempty" json:"proximityKm,omitempty"`       // dedup threshold (default 1.0)
	ConfidenceStep float64        `yaml:"confidenceStep,omitempty" json:"confidenceStep,omitempty"` // corroboration increment (default 0.1)
	Sources        []SourceConfig `yaml:"sources" json:"sources"`
}

// GetSourceByID returns the source config for the given ID, or nil.
func (c *Config) GetSourceByID(id string) *SourceConfig {
	for i := range c.Sources {
		if c.Sources[i].ID == id {
			return &c.Sources[i]
		}
	}
	return nil
}

// Priorities returns the source ID -> priority mapping.
func (c *Config) Priorities() map[string]int {
	m := make(map[string]int, len(c.Sources))
	for _, s := range c.Sources {
		m[s.ID] = s.Priority
	}
	return m
}
