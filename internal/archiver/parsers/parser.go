package parsers

import (
	"context"
	"errors"
)

// ErrSkipLine indicates the parser couldn't parse the line but processing should continue.
var ErrSkipLine = errors.New("skip line")

type ParserOptions struct {
	// EmitRaw keeps the raw line on the event (inspect --emit-raw).
	EmitRaw bool
	// MaxSoapBytes truncates parsed SOAP envelopes to this many bytes.
	// 0 keeps the whole envelope.
	MaxSoapBytes int
}

// Parser converts one raw Gatling log line into a canonical Event.
type Parser interface {
	// ParseLine returns the Event for line, ErrSkipLine if the line is
	// ignorable noise, or another error for lines that matched the log
	// grammar but are unusable (e.g. missing gatlingRunId).
	ParseLine(ctx context.Context, line string) (*Event, error)
}
