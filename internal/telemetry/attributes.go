package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
)

// MergeAttributes copies attrs and overlays extra on top. The inputs are not
// modified.
func MergeAttributes(attrs Attributes, extra Attributes) Attributes {
	merged := make(Attributes, len(attrs)+len(extra))
	for k, v := range attrs {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// SanitizeAttributes rewrites, in place, every value that cannot be encoded
// as JSON. Non-finite floats become nil, anything else unencodable becomes
// its fmt text. One bad value must not fail the batch it travels in.
func SanitizeAttributes(attrs Attributes) {
	for k, v := range attrs {
		attrs[k] = sanitizeValue(v)
	}
}

func sanitizeValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return v
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return v
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil
		}
		return v
	}

	if encodable(v) {
		return v
	}
	return fmt.Sprint(v)
}

func encodable(v any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	_, err := json.Marshal(v)
	return err == nil
}
