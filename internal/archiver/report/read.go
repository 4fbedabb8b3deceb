package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxLineBytes bounds the scanner buffer. Inspect output for XMLA runs can
// carry whole SOAP envelopes on one line.
const maxLineBytes = 16 * 1024 * 1024

// ReadEvents reads NDJSON events from files or stdin and sends them on a channel.
// This function implements streaming processing for large inspect outputs.
//
// Behavior:
// - If no files specified, reads from stdin
// - If multiple files specified, processes them sequentially
// - Each line is parsed as JSON and sent on the channel
// - Malformed JSON lines are sent as errors but don't stop processing
// - Empty lines are skipped
// - Uses buffered channel (100 events) for better performance
//
// The returned channel will be closed when all files are processed.
func ReadEvents(files []string) <-chan EventResult {
	ch := make(chan EventResult, 100)

	go func() {
		defer close(ch)

		// If no files specified, read from stdin (supports pipeline operations)
		if len(files) == 0 {
			readFromReader(os.Stdin, "stdin", ch)
			return
		}

		for _, file := range files {
			f, err := os.Open(file)
			if err != nil {
				// Send error on channel but continue with other files
				ch <- EventResult{
					Event: nil,
					Err:   fmt.Errorf("failed to open file %s: %w", file, err),
				}
				continue
			}

			readFromReader(f, file, ch)
			f.Close()
		}
	}()

	return ch
}

// readFromReader reads NDJSON lines from a reader and sends events on the channel.
//
// Error handling:
// - JSON parse errors are sent as EventResult with Err set
// - Scanner errors (I/O issues) are sent as EventResult with Err set
// - Processing continues even after errors
func readFromReader(r io.Reader, source string, ch chan<- EventResult) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()

		if line == "" {
			continue
		}

		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			ch <- EventResult{
				Event: nil,
				Err:   fmt.Errorf("JSON parse error in %s line %d: %w", source, lineNumber, err),
			}
			continue
		}

		ch <- EventResult{
			Event: event,
			Err:   nil,
		}
	}

	if err := scanner.Err(); err != nil {
		ch <- EventResult{
			Event: nil,
			Err:   fmt.Errorf("scanner error in %s: %w", source, err),
		}
	}
}
