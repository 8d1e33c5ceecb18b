package track

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// rawPayload is the readsb/dump1090-style wrapper around an aircraft list.
// The "now" field, when present, is the source's wall clock in seconds and
// becomes the fallback observation timestamp.
type rawPayload struct {
	Now      float64  `json:"now"`
	Aircraft []Report `json:"aircraft"`
}

// DecodePayload parses one source's payload into a SourcePayload. Both the
// wrapped form {"now": ..., "aircraft": [...]} and a bare aircraft array are
// accepted. Reports that carry no observation timestamp get the payload's
// "now" field, or receivedAt when that is absent too.
func DecodePayload(data []byte, receivedAt time.Time) (*SourcePayload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode payload: empty body")
	}

	var aircraft []Report
	fallbackMs := receivedAt.UnixMilli()

	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &aircraft); err != nil {
			return nil, fmt.Errorf("decode payload: parsing aircraft array: %w", err)
		}
	} else {
		var raw rawPayload
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("decode payload: parsing JSON: %w", err)
		}
		aircraft = raw.Aircraft
		if raw.Now > 0 {
			fallbackMs = int64(raw.Now * 1000)
		}
	}

	for i := range aircraft {
		if aircraft[i].ObservedAt == 0 {
			aircraft[i].ObservedAt = fallbackMs
		}
	}

	return &SourcePayload{Aircraft: aircraft}, nil
}
