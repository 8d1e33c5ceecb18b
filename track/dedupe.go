package track

// DefaultProximityKm is the distance below which two differently-identified
// aircraft are judged to be the same physical object.
const DefaultProximityKm = 1.0

// Dedupe removes proximity duplicates from a fused entity list using
// DefaultProximityKm.
func Dedupe(entities []*FusedAircraft) []*FusedAircraft {
	return DedupeWithThreshold(entities, DefaultProximityKm)
}

// DedupeWithThreshold walks the candidates in input order and accepts each
// one unless it is a duplicate of something already accepted. A candidate is
// a duplicate when its key was already accepted (first occurrence wins; Fuse
// emits unique keys today, but the guard stays in case upstream changes), or
// when it is strictly closer than thresholdKm to any accepted entity. The
// discarded candidate's data is not merged into the survivor.
//
// This is O(n²) distance checks per cycle. Acceptable while the number of
// simultaneously tracked aircraft stays in the low hundreds; a spatial index
// behind the same contract would be the fix if that changes.
func DedupeWithThreshold(entities []*FusedAircraft, thresholdKm float64) []*FusedAircraft {
	if len(entities) == 0 {
		return nil
	}

	accepted := make([]*FusedAircraft, 0, len(entities))
	seen := make(map[string]struct{}, len(entities))

	for _, cand := range entities {
		key := cand.Key()
		if _, dup := seen[key]; dup {
			continue
		}

		isDuplicate := false
		for _, acc := range accepted {
			if DistanceKm(cand.Lat, cand.Lon, acc.Lat, acc.Lon) < thresholdKm {
				isDuplicate = true
				break
			}
		}
		if isDuplicate {
			continue
		}

		seen[key] = struct{}{}
		accepted = append(accepted, cand)
	}

	return accepted
}
