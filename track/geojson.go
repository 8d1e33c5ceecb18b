package track

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ToFeatureCollection converts a fused entity list into a GeoJSON
// FeatureCollection of Point features. Entities with a non-finite position
// are skipped since they cannot be placed.
func ToFeatureCollection(entities []*FusedAircraft) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, a := range entities {
		if !isFinite(a.Lat) || !isFinite(a.Lon) {
			continue
		}

		f := geojson.NewFeature(orb.Point{a.Lon, a.Lat})
		f.ID = a.Key()
		f.Properties["hex"] = a.HexID
		f.Properties["flight"] = a.Callsign
		f.Properties["altitude"] = a.Altitude
		f.Properties["gs"] = a.GroundSpeed
		f.Properties["track"] = a.Heading
		f.Properties["observedAt"] = a.ObservedAt
		f.Properties["sourcePriority"] = a.SourcePriority
		f.Properties["confidence"] = a.Confidence
		if a.Origin != "" {
			f.Properties["origin"] = a.Origin
		}
		if a.Destination != "" {
			f.Properties["destination"] = a.Destination
		}

		fc.Append(f)
	}

	return fc
}
