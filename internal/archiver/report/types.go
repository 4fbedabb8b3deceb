package report

import "time"

// Event represents a parsed Gatling event as a map of string keys to any values.
// This is the canonical representation of an inspect event after JSON unmarshaling.
// All fields from the original NDJSON are preserved, including:
// - Identity fields: event_id, kind, protocol, gatling_run_id, run_key
// - Query fields: model, cube, catalog, query_name, query_hash, status
// - Timing fields: timestamp, start_ms, end_ms, duration_ms
// - Payload fields: rows_returned, response_size, rownumber, soap_body_hash
type Event = map[string]any

// ReportOptions contains all CLI flags and options for the report command.
// This struct is populated from Cobra flags and passed to the main RunReport function.
// All filtering, output, and processing options are centralized here.
type ReportOptions struct {
	// Input/Output configuration
	InputFiles []string // Input NDJSON file(s), empty means stdin
	OutputFile string   // Output file path, empty means stdout

	// Identity filtering
	RunID     string   // Filter by exact Gatling run id (gatling_run_id field)
	Models    []string // Filter by model names (model field)
	Protocols []string // Filter by protocol (jdbc, xmla)

	// Shape and outcome filtering
	Kinds    []string // Filter by record kinds (header, detail)
	Statuses []string // Filter by request status (SUCCEEDED, FAILED)

	// Duration and time-based filtering
	MinDuration  time.Duration // Include events that took at least this long
	Since        time.Time     // Include events on or after this time
	LastDuration time.Duration // Include events from the last N days/hours

	// Output options
	Summary bool // Print summary counts instead of full events
	Limit   int  // Limit number of output events (0 = no limit)
}

// EventFilter is a function that determines if an event matches certain criteria.
// Filters are composable and can be combined using AND logic.
// Each filter should handle missing fields gracefully (treat as non-match).
type EventFilter func(Event) bool

// EventResult represents the result of reading an event from input.
// This is used for channel communication between the reader and main processing loop.
// Errors are sent on the channel rather than stopping processing entirely.
type EventResult struct {
	Event Event // The parsed event (nil if parsing failed)
	Err   error // Error encountered during reading/parsing (nil if successful)
}
