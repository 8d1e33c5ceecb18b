package track

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

// ErrCycleInProgress is returned when ProcessBatch is invoked while a
// previous cycle is still running. Cycles never overlap; the caller is
// expected to drop the batch and retry on the next cadence tick.
var ErrCycleInProgress = errors.New("processing cycle already in progress")

// MalformedInputError reports a snapshot whose shape violates the expected
// per-source structure. The cycle fails without touching the cache.
type MalformedInputError struct {
	Source string
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("malformed snapshot: source %q: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("malformed snapshot: %s", e.Reason)
}

// Coordinator orchestrates one processing cycle: flatten the multi-source
// snapshot, fuse, dedupe, update the cache, and report statistics. It owns
// the cache for its lifetime; multiple independent coordinators can coexist
// in one process.
type Coordinator struct {
	mu             sync.Mutex
	cache          *TrackCache
	priorities     map[string]int
	confidenceStep float64
	proximityKm    float64
	maxAge         time.Duration

	now func() time.Time // injectable for tests
}

// NewCoordinator builds a coordinator from the given configuration. Missing
// tuning values fall back to the package defaults.
func NewCoordinator(cfg *Config) *Coordinator {
	step := cfg.ConfidenceStep
	if step <= 0 {
		step = DefaultConfidenceStep
	}
	proximity := cfg.ProximityKm
	if proximity <= 0 {
		proximity = DefaultProximityKm
	}
	maxAge := DefaultMaxAge
	if cfg.MaxAgeMs > 0 {
		maxAge = time.Duration(cfg.MaxAgeMs) * time.Millisecond
	}

	return &Coordinator{
		cache:          NewTrackCache(),
		priorities:     cfg.Priorities(),
		confidenceStep: step,
		proximityKm:    proximity,
		maxAge:         maxAge,
		now:            time.Now,
	}
}

// ProcessBatch runs one full cycle over the snapshot and returns the fused,
// deduplicated entity list plus cycle statistics.
//
// Steps run synchronously and in order: flatten (tagging each report with its
// source's configured priority), fuse, drop non-finite positions, dedupe,
// cache sweep-then-upsert. A snapshot naming an unconfigured source is
// malformed; the cycle fails before any cache mutation so the previous
// cycle's state survives intact. Overlapping invocations are rejected with
// ErrCycleInProgress rather than queued.
func (c *Coordinator) ProcessBatch(snapshot Snapshot) ([]*FusedAircraft, ProcessingStats, error) {
	if !c.mu.TryLock() {
		return nil, ProcessingStats{}, ErrCycleInProgress
	}
	defer c.mu.Unlock()

	reports, err := c.flatten(snapshot)
	if err != nil {
		return nil, ProcessingStats{}, err
	}

	start := c.now()

	fused := FuseWithOptions(reports, c.confidenceStep)
	fused = dropNonFinite(fused)
	deduped := DedupeWithThreshold(fused, c.proximityKm)

	sweepTime := c.now()
	expired := c.cache.SweepExpired(sweepTime, c.maxAge)
	c.cache.UpsertAll(deduped, sweepTime)
	if expired > 0 {
		log.Printf("[DEBUG] cycle: swept %d expired cache entr(ies)", expired)
	}

	stats := ProcessingStats{
		LatencyMs:   c.now().Sub(start).Milliseconds(),
		OutputCount: len(deduped),
		CacheSize:   c.cache.Size(),
	}

	return deduped, stats, nil
}

// flatten turns the per-source snapshot into one report sequence, tagging
// each report with its source's static priority.
func (c *Coordinator) flatten(snapshot Snapshot) ([]SourcedReport, error) {
	if snapshot == nil {
		return nil, &MalformedInputError{Reason: "snapshot is nil"}
	}

	var reports []SourcedReport
	for sourceID, payload := range snapshot {
		priority, ok := c.priorities[sourceID]
		if !ok {
			return nil, &MalformedInputError{
				Source: sourceID,
				Reason: "not present in source configuration",
			}
		}
		if payload == nil {
			continue
		}
		for _, r := range payload.Aircraft {
			reports = append(reports, SourcedReport{
				Report:   r,
				SourceID: sourceID,
				Priority: priority,
			})
		}
	}
	return reports, nil
}

// dropNonFinite removes entities whose position is NaN or infinite. NaN
// comparisons are always false, so a NaN-positioned entity would never match
// as a proximity duplicate and would poison the dedup pass.
func dropNonFinite(entities []*FusedAircraft) []*FusedAircraft {
	result := entities[:0]
	dropped := 0
	for _, a := range entities {
		if !isFinite(a.Lat) || !isFinite(a.Lon) {
			dropped++
			continue
		}
		result = append(result, a)
	}
	if dropped > 0 {
		log.Printf("[DEBUG] cycle: dropped %d entit(ies) with non-finite position", dropped)
	}
	return result
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Cache exposes the coordinator's cache for read access (statistics,
// HTTP endpoints). Mutation stays with the coordinator.
func (c *Coordinator) Cache() *TrackCache {
	return c.cache
}

// CacheSize returns the current cache size. Safe to call from a reporting
// path while a cycle is in progress.
func (c *Coordinator) CacheSize() int {
	return c.cache.Size()
}
