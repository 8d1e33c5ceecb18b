package track

import "log"

// DefaultConfidenceStep is the confidence increment applied when an
// equal-priority source corroborates an existing observation.
const DefaultConfidenceStep = 0.1

// maxConfidence caps the corroboration score.
const maxConfidence = 1.0

// Fuse merges same-identity reports from multiple sources into one fused
// record per entity key using DefaultConfidenceStep.
//
// Merge rules per key, applied report by report:
//   - the first report seeds the fused record with confidence 1.0
//   - a higher-priority report overrides all mergeable fields and resets
//     confidence to 1.0
//   - an equal-priority report averages lat/lon/altitude/groundSpeed/heading
//     with the existing values and raises confidence by the step, capped
//   - a lower-priority report is ignored
//
// observedAt always becomes the max across contributing reports, regardless
// of which rule applied. Reports without a derivable key are silently
// discarded. Output order is first-seen order, but callers must not rely on
// ordering.
//
// Heading averaging is linear, not circular: 359 and 1 average to 180. That
// is a known limitation of the merge rule, kept deliberately because a
// circular mean would change observable output.
func Fuse(reports []SourcedReport) []*FusedAircraft {
	return FuseWithOptions(reports, DefaultConfidenceStep)
}

// FuseWithOptions is like Fuse but accepts a custom confidence step.
func FuseWithOptions(reports []SourcedReport, confidenceStep float64) []*FusedAircraft {
	if len(reports) == 0 {
		return nil
	}

	fused := make(map[string]*FusedAircraft, len(reports))
	var order []string
	dropped := 0

	for i := range reports {
		r := &reports[i]
		key := r.Key()
		if key == "" {
			dropped++
			continue
		}

		existing, ok := fused[key]
		if !ok {
			fused[key] = seedFused(r)
			order = append(order, key)
			continue
		}

		switch {
		case r.Priority > existing.SourcePriority:
			// Override: the more trusted source replaces all mergeable fields.
			overrideFused(existing, r)
		case r.Priority == existing.SourcePriority:
			// Corroborate: average positions and raise confidence.
			existing.Lat = (existing.Lat + r.Lat) / 2
			existing.Lon = (existing.Lon + r.Lon) / 2
			existing.Altitude = (existing.Altitude + r.Altitude) / 2
			existing.GroundSpeed = (existing.GroundSpeed + r.GroundSpeed) / 2
			existing.Heading = (existing.Heading + r.Heading) / 2
			existing.Confidence += confidenceStep
			if existing.Confidence > maxConfidence {
				existing.Confidence = maxConfidence
			}
		}
		// Lower priority: no field changes.

		if r.ObservedAt > existing.ObservedAt {
			existing.ObservedAt = r.ObservedAt
		}
	}

	if dropped > 0 {
		log.Printf("[DEBUG] fuse: dropped %d report(s) with no hex or callsign", dropped)
	}

	result := make([]*FusedAircraft, 0, len(order))
	for _, key := range order {
		result = append(result, fused[key])
	}
	return result
}

// seedFused creates a fused record from the first report seen for a key.
func seedFused(r *SourcedReport) *FusedAircraft {
	return &FusedAircraft{
		HexID:          r.HexID,
		Callsign:       r.Callsign,
		Lat:            r.Lat,
		Lon:            r.Lon,
		Altitude:       r.Altitude,
		GroundSpeed:    r.GroundSpeed,
		Heading:        r.Heading,
		Origin:         r.Origin,
		Destination:    r.Destination,
		ObservedAt:     r.ObservedAt,
		SourcePriority: r.Priority,
		Confidence:     maxConfidence,
	}
}

// overrideFused replaces all mergeable fields with the incoming report's
// values and resets confidence. observedAt is handled by the caller.
func overrideFused(existing *FusedAircraft, r *SourcedReport) {
	existing.HexID = r.HexID
	existing.Callsign = r.Callsign
	existing.Lat = r.Lat
	existing.Lon = r.Lon
	existing.Altitude = r.Altitude
	existing.GroundSpeed = r.GroundSpeed
	existing.Heading = r.Heading
	existing.Origin = r.Origin
	existing.Destination = r.Destination
	existing.SourcePriority = r.Priority
	existing.Confidence = maxConfidence
}
