package redis

import (
	"encoding/json"
	"time"
)

// encodeMetadata serializes an open metadata map to JSON for hash storage.
// A nil map encodes to the empty string.
func encodeMetadata(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	data, err := json.Marshal(m)
	if err != nil {
		// Metadata values are caller-supplied; an unmarshalable value
		// degrades to no metadata rather than failing the write.
		return ""
	}
	return string(data)
}

// decodeMetadata deserializes stored metadata. A malformed encoding
// degrades to an empty map, never an error.
func decodeMetadata(s string) map[string]any {
	if s == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return map[string]any{}
	}
	return m
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
