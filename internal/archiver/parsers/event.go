package parsers

// Kind discriminates the two record shapes a log line can produce.
// Header lines describe one logical request; detail lines carry one
// result-set row of a request (JDBC only).
type Kind string

const (
	KindHeader Kind = "header"
	KindDetail Kind = "detail"
)

// Event represents one parsed Gatling log line in canonical form.
// It maps directly to the NDJSON schema emitted by inspect and to the
// warehouse header/detail columns.
type Event struct {
	EventID  string `json:"event_id"`
	Kind     Kind   `json:"kind"`
	Protocol string `json:"protocol"` // "jdbc" or "xmla"

	Timestamp   string `json:"timestamp,omitempty"` // RFC3339Nano UTC
	Level       string `json:"level,omitempty"`
	Logger      string `json:"logger,omitempty"`
	MessageKind string `json:"message_kind,omitempty"` // jdbcLog, xmlaLog

	RunID  string `json:"gatling_run_id"`
	RunKey string `json:"run_key"`

	Status         *string `json:"status,omitempty"`
	SessionID      *int64  `json:"gatling_session_id,omitempty"`
	Model          *string `json:"model,omitempty"`
	Cube           *string `json:"cube,omitempty"`    // xmla only
	Catalog        *string `json:"catalog,omitempty"` // xmla only
	QueryName      *string `json:"query_name,omitempty"`
	QueryHash      *string `json:"query_hash,omitempty"` // inboundTextAsHash token
	AtScaleQueryID *string `json:"atscale_query_id,omitempty"`

	StartMs      *int64 `json:"start_ms,omitempty"`
	EndMs        *int64 `json:"end_ms,omitempty"`
	DurationMs   *int64 `json:"duration_ms,omitempty"`
	RowsReturned *int64 `json:"rows_returned,omitempty"`
	ResponseSize *int64 `json:"response_size,omitempty"` // xmla only

	// Detail fields (rownumber present on the line)
	RowNumber *int64  `json:"rownumber,omitempty"`
	RowMap    *string `json:"row_map,omitempty"` // row=Map(...) contents
	RowHash   *string `json:"row_hash,omitempty"`

	// XMLA response payload
	SoapEnvelope *string `json:"soap_envelope,omitempty"`
	SoapBodyHash *string `json:"soap_body_hash,omitempty"` // LastDataUpdate-normalized

	// Raw line, only when EmitRaw is enabled.
	RawLine *string `json:"raw_line,omitempty"`
}
