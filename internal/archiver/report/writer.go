package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteEventNDJSON writes an event as NDJSON (newline-delimited JSON) to the writer.
// Each event is written on its own line, making the output suitable for
// streaming back into report or into jq-style pipelines.
//
// The function preserves all fields from the original event without any projection.
func WriteEventNDJSON(w io.Writer, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event to JSON: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}
