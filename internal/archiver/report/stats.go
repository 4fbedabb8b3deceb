package report

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// Stats tracks comprehensive statistics about processed events.
// This struct is used to generate the summary output and provides a quick
// picture of a load test run without touching the warehouse.
//
// Fields:
// - InputEvents: Total number of events processed (including errors)
// - MatchedEvents: Number of events that passed all filters
// - ErrorEvents: Number of events that failed to parse or had I/O errors
// - ByModel: Breakdown by model name
// - ByStatus: Breakdown by request status (SUCCEEDED, FAILED)
// - ByKind: Breakdown by record kind (header, detail)
// - ByProtocol: Breakdown by wire protocol (jdbc, xmla)
// - TotalRows: Sum of rows_returned across matched headers
// - FirstTimestamp/LastTimestamp: Time range of matched events
type Stats struct {
	InputEvents   int            // Total events processed (including errors)
	MatchedEvents int            // Events that passed all filters
	ErrorEvents   int            // Events that failed to parse or had I/O errors
	ByModel       map[string]int // Count by model name
	ByStatus      map[string]int // Count by request status (SUCCEEDED, FAILED)
	ByKind        map[string]int // Count by record kind (header, detail)
	ByProtocol    map[string]int // Count by protocol (jdbc, xmla)
	TotalRows     int64          // Sum of rows_returned across matched headers

	FirstTimestamp *time.Time // Earliest event timestamp
	LastTimestamp  *time.Time // Latest event timestamp

	// durations collects duration_ms of matched headers for the latency
	// section of the summary.
	durations []int64
}

// NewStats creates a new Stats instance with initialized maps.
// This constructor ensures all map fields are properly initialized to avoid nil pointer panics.
func NewStats() *Stats {
	return &Stats{
		ByModel:    make(map[string]int),
		ByStatus:   make(map[string]int),
		ByKind:     make(map[string]int),
		ByProtocol: make(map[string]int),
	}
}

// IncrementInput increments the input events counter.
// This should be called for every event processed, regardless of whether it matches filters.
func (s *Stats) IncrementInput() {
	s.InputEvents++
}

// IncrementError increments the error events counter.
// This should be called for events that failed to parse or had I/O errors.
func (s *Stats) IncrementError() {
	s.ErrorEvents++
}

// IncrementMatched increments the matched events counter and updates all relevant statistics.
// This is the main function for tracking statistics about events that passed all filters.
//
// Statistics updated:
// - MatchedEvents: Total count of matching events
// - ByModel/ByStatus/ByKind/ByProtocol: Breakdown counters
// - TotalRows: Running sum of rows_returned
// - Latency samples: duration_ms of each matched header
// - FirstTimestamp/LastTimestamp: Time range of all matched events
func (s *Stats) IncrementMatched(e Event) {
	s.MatchedEvents++

	if model, ok := GetString(e, "model"); ok {
		s.ByModel[model]++
	}
	if status, ok := GetString(e, "status"); ok {
		s.ByStatus[status]++
	}
	if kind, ok := GetString(e, "kind"); ok {
		s.ByKind[kind]++
	}
	if protocol, ok := GetString(e, "protocol"); ok {
		s.ByProtocol[protocol]++
	}
	if rows, ok := GetInt64(e, "rows_returned"); ok {
		s.TotalRows += rows
	}
	if duration, ok := GetInt64(e, "duration_ms"); ok {
		s.durations = append(s.durations, duration)
	}

	// Update time range - track earliest and latest timestamps
	if timestamp, err := ParseTimestamp(e["timestamp"]); err == nil {
		if s.FirstTimestamp == nil || timestamp.Before(*s.FirstTimestamp) {
			s.FirstTimestamp = &timestamp
		}
		if s.LastTimestamp == nil || timestamp.After(*s.LastTimestamp) {
			s.LastTimestamp = &timestamp
		}
	}
}

// Percentile returns the p-th percentile of collected durations in
// milliseconds using the nearest-rank method, or 0 when no event carried a
// duration. Valid p ranges over (0, 100].
func (s *Stats) Percentile(p float64) int64 {
	if len(s.durations) == 0 || p <= 0 || p > 100 {
		return 0
	}
	sorted := make([]int64, len(s.durations))
	copy(sorted, s.durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := int(float64(len(sorted))*p/100 + 0.5)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// MaxDuration returns the largest collected duration in milliseconds, or 0
// when no event carried a duration.
func (s *Stats) MaxDuration() int64 {
	var max int64
	for _, d := range s.durations {
		if d > max {
			max = d
		}
	}
	return max
}

// DurationSamples returns how many matched events carried a duration.
func (s *Stats) DurationSamples() int {
	return len(s.durations)
}

// PrintSummary prints a formatted summary to the writer.
// This generates the human-readable output that appears when --summary is used.
//
// Output format:
// - Total events processed (including errors)
// - Time range of matched events (if available)
// - Number of matched and errored events
// - Breakdown by protocol, kind, model and status
// - Latency percentiles over matched headers (p50, p95, max)
// - Total rows returned
//
// The breakdowns are sorted by count (descending) then by name (ascending) for readability.
func (s *Stats) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Total events processed: %d\n", s.InputEvents)

	if s.FirstTimestamp != nil && s.LastTimestamp != nil {
		fmt.Fprintf(w, "  Time range: %s to %s\n",
			s.FirstTimestamp.Format(time.RFC3339),
			s.LastTimestamp.Format(time.RFC3339))
	}

	fmt.Fprintf(w, "  Matched: %d\n", s.MatchedEvents)
	if s.ErrorEvents > 0 {
		fmt.Fprintf(w, "  Errors: %d\n", s.ErrorEvents)
	}
	fmt.Fprintf(w, "\n")

	if len(s.ByProtocol) > 0 {
		fmt.Fprintf(w, "  By protocol:\n")
		s.printSortedMap(w, s.ByProtocol, "    ")
		fmt.Fprintf(w, "\n")
	}

	if len(s.ByKind) > 0 {
		fmt.Fprintf(w, "  By kind:\n")
		s.printSortedMap(w, s.ByKind, "    ")
		fmt.Fprintf(w, "\n")
	}

	if len(s.ByModel) > 0 {
		fmt.Fprintf(w, "  By model:\n")
		s.printSortedMap(w, s.ByModel, "    ")
		fmt.Fprintf(w, "\n")
	}

	if len(s.ByStatus) > 0 {
		fmt.Fprintf(w, "  By status:\n")
		s.printSortedMap(w, s.ByStatus, "    ")
		fmt.Fprintf(w, "\n")
	}

	if len(s.durations) > 0 {
		fmt.Fprintf(w, "  Latency (ms, %d samples):\n", len(s.durations))
		fmt.Fprintf(w, "    p50: %d\n", s.Percentile(50))
		fmt.Fprintf(w, "    p95: %d\n", s.Percentile(95))
		fmt.Fprintf(w, "    max: %d\n", s.MaxDuration())
		fmt.Fprintf(w, "\n")
	}

	if s.TotalRows > 0 {
		fmt.Fprintf(w, "  Rows returned: %d\n", s.TotalRows)
	}
}

// printSortedMap prints a map sorted by value (descending) then by key (ascending).
// Items with the same count are sorted alphabetically by key for predictable output.
func (s *Stats) printSortedMap(w io.Writer, m map[string]int, indent string) {
	type kv struct {
		key   string
		value int
	}

	var pairs []kv
	for k, v := range m {
		pairs = append(pairs, kv{k, v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].value == pairs[j].value {
			return pairs[i].key < pairs[j].key // Same count: sort alphabetically
		}
		return pairs[i].value > pairs[j].value // Different count: sort by count descending
	})

	for _, pair := range pairs {
		fmt.Fprintf(w, "%s%s: %d\n", indent, pair.key, pair.value)
	}
}

// GetSummaryMap returns the statistics as a map for programmatic access
func (s *Stats) GetSummaryMap() map[string]interface{} {
	summary := map[string]interface{}{
		"total_events_processed": s.InputEvents,
		"matched_events":         s.MatchedEvents,
		"error_events":           s.ErrorEvents,
		"by_model":               s.ByModel,
		"by_status":              s.ByStatus,
		"by_kind":                s.ByKind,
		"by_protocol":            s.ByProtocol,
		"rows_returned":          s.TotalRows,
	}

	if len(s.durations) > 0 {
		summary["latency_ms"] = map[string]int64{
			"p50": s.Percentile(50),
			"p95": s.Percentile(95),
			"max": s.MaxDuration(),
		}
	}

	if s.FirstTimestamp != nil && s.LastTimestamp != nil {
		summary["time_range"] = map[string]string{
			"start": s.FirstTimestamp.Format(time.RFC3339),
			"end":   s.LastTimestamp.Format(time.RFC3339),
		}
	}

	return summary
}
