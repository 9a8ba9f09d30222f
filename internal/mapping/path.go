package mapping

import (
	"strings"

	"lead_exchange_backend/internal/transform"
)

// Resolve walks a dotted path ("homeowner.address.zip") through nested maps
// in the raw lead data. The second return is false when any segment is
// missing or a non-map is hit before the final segment.
func Resolve(raw map[string]any, path string) (transform.Value, bool) {
	segments := strings.Split(path, ".")
	var current any = raw
	for i, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return transform.Null(), false
		}
		next, ok := m[seg]
		if !ok {
			return transform.Null(), false
		}
		if i == len(segments)-1 {
			return transform.FromAny(next), true
		}
		current = next
	}
	return transform.Null(), false
}
