package report

import (
	"time"
)

// FilterByRunID creates a filter that matches events by exact Gatling run id.
// Run ids are warehouse keys of the form "<test name>|<N> users|<run time>",
// so matching is exact rather than case-insensitive.
//
// Examples:
// - FilterByRunID("internet sales|10 users|10 minutes") matches only that run
//
// The filter treats a missing gatling_run_id field as non-match.
func FilterByRunID(runID string) EventFilter {
	return func(e Event) bool {
		id, ok := GetString(e, "gatling_run_id")
		if !ok {
			return false // No run id = no match
		}
		return id == runID
	}
}

// FilterByModel creates a filter that matches events by model name.
// This filter looks for the 'model' field and matches against multiple models.
//
// Examples:
// - FilterByModel(["internet sales"]) matches only that model
// - FilterByModel(["internet sales", "m3"]) matches either model
//
// The filter is case-insensitive and treats a missing model field as non-match.
// Detail rows carry no model, so model filtering implicitly drops details.
func FilterByModel(models []string) EventFilter {
	return func(e Event) bool {
		model, ok := GetString(e, "model")
		if !ok {
			return false // No model field = no match
		}
		return matchesAny(model, models)
	}
}

// FilterByProtocol creates a filter that matches events by wire protocol.
//
// Examples:
// - FilterByProtocol(["jdbc"]) matches only JDBC/SQL events
// - FilterByProtocol(["xmla"]) matches only XMLA/SOAP events
//
// The filter is case-insensitive and treats a missing protocol field as non-match.
func FilterByProtocol(protocols []string) EventFilter {
	return func(e Event) bool {
		protocol, ok := GetString(e, "protocol")
		if !ok {
			return false
		}
		return matchesAny(protocol, protocols)
	}
}

// FilterByKind creates a filter that matches events by record kind.
// This filter looks for the 'kind' field and matches header or detail records.
//
// Examples:
// - FilterByKind(["header"]) matches one record per logical request
// - FilterByKind(["detail"]) matches per-row result set records (JDBC only)
//
// The filter is case-insensitive and treats a missing kind field as non-match.
func FilterByKind(kinds []string) EventFilter {
	return func(e Event) bool {
		kind, ok := GetString(e, "kind")
		if !ok {
			return false
		}
		return matchesAny(kind, kinds)
	}
}

// FilterByStatus creates a filter that matches events by request status.
// The scenarios stamp each request SUCCEEDED or FAILED; this filter looks
// for the 'status' field.
//
// Examples:
// - FilterByStatus(["FAILED"]) matches only failed requests
// - FilterByStatus(["SUCCEEDED", "FAILED"]) matches any request with a recorded status
//
// The filter is case-insensitive and treats a missing status field as non-match.
func FilterByStatus(statuses []string) EventFilter {
	return func(e Event) bool {
		status, ok := GetString(e, "status")
		if !ok {
			return false
		}
		return matchesAny(status, statuses)
	}
}

// FilterByMinDuration creates a filter that matches events at or above a duration.
// This filter looks for the 'duration_ms' field and is the slow-query knife.
//
// Examples:
// - FilterByMinDuration(2*time.Second) matches requests that took >= 2000ms
// - FilterByMinDuration(0) matches every event that has a duration at all
//
// The filter treats a missing duration_ms field as non-match, which also
// drops detail rows since only headers carry timings.
func FilterByMinDuration(min time.Duration) EventFilter {
	return func(e Event) bool {
		duration, ok := GetInt64(e, "duration_ms")
		if !ok {
			return false
		}
		return duration >= min.Milliseconds()
	}
}

// FilterByTime creates a filter that matches events within a time range.
// This filter supports both absolute time (--since) and relative time (--last) filtering.
//
// Examples:
// - FilterByTime(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), 0) matches events from Aug 1, 2026 onwards
// - FilterByTime(time.Time{}, 24*time.Hour) matches events from the last 24 hours
//
// Priority: If both since and last are specified, last takes precedence.
// The filter treats missing or invalid timestamp as non-match.
func FilterByTime(since time.Time, last time.Duration) EventFilter {
	return func(e Event) bool {
		timestamp, err := ParseTimestamp(e["timestamp"])
		if err != nil {
			return false // Invalid timestamp = no match
		}

		if last > 0 {
			cutoff := time.Now().Add(-last)
			return !timestamp.Before(cutoff)
		}

		if !since.IsZero() {
			return !timestamp.Before(since)
		}

		// No time filtering specified - match all events
		return true
	}
}

// matchAll applies all filters to an event using AND logic.
// An event must match ALL filters to be included in the results.
// If no filters are provided, all events match (returns true).
func matchAll(event Event, filters []EventFilter) bool {
	for _, filter := range filters {
		if !filter(event) {
			return false
		}
	}
	return true
}
