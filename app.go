package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/nbd/skyfuse/track"
)

// App encapsulates the application state and dependencies.
type App struct {
	Config      *track.Config
	Coordinator *track.Coordinator
	MQTTClient  *track.IngestClient
	Publisher   *track.Publisher

	// Latest cycle output, read by the HTTP handlers.
	mu           sync.RWMutex
	lastAircraft []*track.FusedAircraft
	lastStats    track.ProcessingStats
	lastCycle    time.Time

	// Buffered payloads from push (MQTT topic) sources, consumed by the
	// next cycle.
	pending *payloadBuffer

	// CLI flags (effectively dependencies)
	ConfigFile string
	DataDir    string
	HttpPort   int
	MqttMode   bool
	HttpMode   bool
	IntervalMs int
}

// NewApp creates a new App instance.
func NewApp() *App {
	return &App{
		pending: newPayloadBuffer(),
	}
}

// ApplyOptions applies CLI options to the App instance.
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.DataDir = opts.DataDir
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
	a.IntervalMs = opts.IntervalMs
}

// RunReplay runs one processing cycle over aircraft-<sourceID>.json files in
// the data directory and prints the fused output as JSON. Test mode; no
// network, no MQTT.
func (a *App) RunReplay() {
	config, err := track.LoadConfig(a.resolveConfigPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	a.Config = config
	a.Coordinator = track.NewCoordinator(config)

	snapshot := track.Snapshot{}
	found := 0
	for _, source := range config.Sources {
		path := filepath.Join(a.DataDir, fmt.Sprintf("aircraft-%s.json", source.ID))
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Warning: failed to read %s: %v", path, err)
			}
			continue
		}
		payload, err := track.DecodePayload(data, time.Now())
		if err != nil {
			log.Printf("Warning: failed to decode %s: %v", path, err)
			continue
		}
		snapshot[source.ID] = payload
		found++
	}

	if found == 0 {
		log.Fatalf("No aircraft-<source>.json files found in %s", a.DataDir)
	}

	entities, stats, err := a.Coordinator.ProcessBatch(snapshot)
	if err != nil {
		log.Fatalf("Cycle failed: %v", err)
	}

	out := struct {
		Aircraft []*track.FusedAircraft `json:"aircraft"`
		Stats    track.ProcessingStats  `json:"stats"`
	}{entities, stats}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	fmt.Println(string(encoded))
}

// RunService starts the long-running fusion service: MQTT ingest for push
// sources, HTTP polling for pull sources, one processing cycle per cadence
// tick, and optional HTTP/MQTT output surfaces.
func (a *App) RunService() {
	fmt.Println("Starting skyfuse service...")

	config, err := track.LoadConfig(a.resolveConfigPath())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	a.Config = config
	a.Coordinator = track.NewCoordinator(config)
	log.Printf("Loaded config with %d source(s)", len(config.Sources))

	if a.IntervalMs > 0 {
		config.IntervalMs = a.IntervalMs
	}

	// MQTT: ingest for topic sources plus fused-state publishing.
	if a.MqttMode {
		handler := func(sourceID string, payload *track.SourcePayload, err error) {
			if err != nil {
				log.Printf("Error receiving payload for %s: %v", sourceID, err)
				return
			}
			a.pending.Put(sourceID, payload)
		}

		mqttClient, err := track.InitMQTT(config, handler)
		if err != nil {
			log.Fatalf("Failed to initialize MQTT: %v", err)
		}
		if mqttClient == nil {
			log.Fatal("MQTT broker not configured in config.yaml")
		}
		a.MQTTClient = mqttClient
		a.Publisher = track.NewPublisherWithPrefix(mqttClient.GetClient(), config.MQTT.PublishPrefix)
		fmt.Println("MQTT ingest and publisher initialized")
	}

	// HTTP server for fused state.
	if a.HttpMode {
		httpServer := newHTTPServer(a)
		go func() {
			addr := fmt.Sprintf("0.0.0.0:%d", a.HttpPort)
			log.Printf("[HTTP] Starting server on %s", addr)
			if err := http.ListenAndServe(addr, httpServer); err != nil {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()
	}

	interval := time.Duration(config.IntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fmt.Println("\nService Running")
	fmt.Println("===============")
	fmt.Printf("Cycle cadence: %v\n", interval)
	for _, s := range config.Sources {
		switch {
		case s.URL != "":
			fmt.Printf("  source %s (priority %d): poll %s\n", s.ID, s.Priority, s.URL)
		case s.Topic != "":
			fmt.Printf("  source %s (priority %d): subscribe %s\n", s.ID, s.Priority, s.Topic)
		default:
			fmt.Printf("  source %s (priority %d): no input configured\n", s.ID, s.Priority)
		}
	}
	if a.HttpMode {
		fmt.Printf("\nHTTP endpoints (port %d):\n", a.HttpPort)
		fmt.Println("  GET /health           - Health check")
		fmt.Println("  GET /aircraft.json    - Fused aircraft list + cycle stats")
		fmt.Println("  GET /aircraft.geojson - Fused aircraft as GeoJSON")
		fmt.Println("  GET /stats            - Last cycle statistics")
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			a.runCycle()
		case <-sigChan:
			fmt.Println("\nShutting down service...")
			if a.MQTTClient != nil {
				a.MQTTClient.Disconnect()
			}
			fmt.Println("Service stopped")
			return
		}
	}
}

// runCycle assembles one snapshot from all sources and runs it through the
// coordinator. Failures are logged and the cycle is retried on the next tick.
func (a *App) runCycle() {
	snapshot := a.buildSnapshot()

	entities, stats, err := a.Coordinator.ProcessBatch(snapshot)
	if err != nil {
		log.Printf("Cycle failed: %v", err)
		return
	}

	a.mu.Lock()
	a.lastAircraft = entities
	a.lastStats = stats
	a.lastCycle = time.Now()
	a.mu.Unlock()

	log.Printf("[DEBUG] cycle: %d aircraft, cache size %d, %dms",
		stats.OutputCount, stats.CacheSize, stats.LatencyMs)

	if a.Publisher != nil {
		if err := a.Publisher.PublishCycle(entities, stats); err != nil {
			log.Printf("Error publishing cycle output: %v", err)
		}
	}
}

// buildSnapshot fetches every URL source in parallel and drains the payloads
// buffered from topic sources since the last cycle.
func (a *App) buildSnapshot() track.Snapshot {
	snapshot := track.Snapshot{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	interval := time.Duration(a.Config.IntervalMs) * time.Millisecond
	for _, source := range a.Config.Sources {
		if source.URL == "" {
			continue
		}
		wg.Add(1)
		go func(id, url string) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			payload, err := track.FetchPayload(ctx, url)
			if err != nil {
				log.Printf("Error fetching %s: %v", id, err)
				return
			}
			mu.Lock()
			snapshot[id] = payload
			mu.Unlock()
		}(source.ID, source.URL)
	}
	wg.Wait()

	for id, payload := range a.pending.Drain() {
		snapshot[id] = payload
	}

	return snapshot
}

// LastCycle returns the most recent cycle's output for the HTTP handlers.
func (a *App) LastCycle() ([]*track.FusedAircraft, track.ProcessingStats, time.Time) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastAircraft, a.lastStats, a.lastCycle
}

// resolveConfigPath resolves the config file relative to data-dir when the
// default is still in place.
func (a *App) resolveConfigPath() string {
	if a.DataDir != "." && a.DataDir != "" && a.ConfigFile == "config.yaml" {
		return filepath.Join(a.DataDir, "config.yaml")
	}
	return a.ConfigFile
}

// payloadBuffer holds the most recent payload per push source between cycles.
// Drain consumes: each payload contributes to exactly one batch.
type payloadBuffer struct {
	mu       sync.Mutex
	payloads map[string]*track.SourcePayload
}

func newPayloadBuffer() *payloadBuffer {
	return &payloadBuffer{
		payloads: make(map[string]*track.SourcePayload),
	}
}

// Put stores a source's latest payload, replacing any unconsumed one.
func (b *payloadBuffer) Put(sourceID string, payload *track.SourcePayload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads[sourceID] = payload
}

// Drain returns all buffered payloads and clears the buffer.
func (b *payloadBuffer) Drain() map[string]*track.SourcePayload {
	b.mu.Lock()
	defer b.mu.Unlock()
	drained := b.payloads
	b.payloads = make(map[string]*track.SourcePayload)
	return drained
}
