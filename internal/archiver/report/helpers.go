package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// GetString safely extracts a string value from an event map.
// Returns (value, ok) where ok is false if the key doesn't exist, is nil, or is not a string.
// This is the primary way to safely access string fields in events.
func GetString(e Event, key string) (string, bool) {
	if v, ok := e[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

// GetInt64 safely extracts an integer value from an event map.
// JSON unmarshaling into map[string]any produces float64 for all numbers,
// so that case carries the load; int and int64 are accepted for events
// constructed programmatically in tests.
// Returns (value, ok) where ok is false if the key doesn't exist, is nil, or is not numeric.
func GetInt64(e Event, key string) (int64, bool) {
	v, ok := e[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// ParseTimestamp parses a timestamp value into time.Time.
// Inspect output carries RFC3339Nano strings, but raw Gatling timestamps and
// hand-edited files show up too, so parsing goes through dateparse which
// handles the common formats without a format list.
// Returns an error if the timestamp cannot be parsed or is nil.
func ParseTimestamp(v any) (time.Time, error) {
	if v == nil {
		return time.Time{}, fmt.Errorf("timestamp is nil")
	}

	switch t := v.(type) {
	case string:
		parsed, err := dateparse.ParseAny(t)
		if err != nil {
			return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", t)
		}
		return parsed, nil
	case time.Time:
		// Already parsed timestamp
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type: %T", v)
	}
}

// ParseDuration parses duration strings supporting 'd' (days) on top of Go's
// standard units. Load test reports commonly span days, so "7d" is accepted
// alongside "24h", "90m" and friends.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	s = strings.TrimSpace(s)

	// Days suffix is a custom extension; everything else is standard.
	if strings.HasSuffix(s, "d") {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err != nil {
			return 0, fmt.Errorf("invalid days value: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("days cannot be negative: %d", days)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// matchesAny checks if any string in the slice matches the target (case-insensitive).
// This is the core function for multi-value filtering (e.g., multiple models).
// Returns true if any candidate matches the target string.
func matchesAny(target string, candidates []string) bool {
	for _, candidate := range candidates {
		if strings.EqualFold(target, candidate) {
			return true
		}
	}
	return false
}
