package report

import (
	"fmt"
	"io"
	"os"
)

// RunReport is the main orchestration function that processes events according to the report options.
// This function coordinates all components of the report system:
// - Building filters from CLI options
// - Opening input/output streams
// - Processing events through filters
// - Collecting statistics
// - Writing results and summaries
//
// The function implements streaming processing: events are handled one at a
// time and never accumulated, so arbitrarily large inspect outputs are fine.
//
// Error handling:
// - Malformed JSON events are counted but don't stop processing
// - I/O errors are returned as wrapped errors
func RunReport(opts ReportOptions) error {
	filters := buildFilters(opts)

	output, err := openOutput(opts.OutputFile)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	if closer, ok := output.(io.Closer); ok {
		defer closer.Close()
	}

	stats := NewStats()

	for result := range ReadEvents(opts.InputFiles) {
		if result.Err != nil {
			stats.IncrementError()
			continue
		}

		stats.IncrementInput()

		// Event must match ALL filters to be included.
		if matchAll(result.Event, filters) {
			stats.IncrementMatched(result.Event)

			// When --summary is specified without --output, only the summary
			// is wanted; events still go to a file when one is named.
			if !opts.Summary || opts.OutputFile != "" {
				if err := WriteEventNDJSON(output, result.Event); err != nil {
					return fmt.Errorf("failed to write event: %w", err)
				}
			}

			if opts.Limit > 0 && stats.MatchedEvents >= opts.Limit {
				break
			}
		}
	}

	if opts.Summary {
		stats.PrintSummary(os.Stderr) // Summary goes to stderr, events to stdout
	}

	return nil
}

// buildFilters creates a list of filters based on the report options.
// Only non-empty options are converted to filters, and all filters are
// combined using AND logic in the main processing loop.
func buildFilters(opts ReportOptions) []EventFilter {
	var filters []EventFilter

	if opts.RunID != "" {
		filters = append(filters, FilterByRunID(opts.RunID))
	}

	if len(opts.Models) > 0 {
		filters = append(filters, FilterByModel(opts.Models))
	}

	if len(opts.Protocols) > 0 {
		filters = append(filters, FilterByProtocol(opts.Protocols))
	}

	if len(opts.Kinds) > 0 {
		filters = append(filters, FilterByKind(opts.Kinds))
	}

	if len(opts.Statuses) > 0 {
		filters = append(filters, FilterByStatus(opts.Statuses))
	}

	if opts.MinDuration > 0 {
		filters = append(filters, FilterByMinDuration(opts.MinDuration))
	}

	if !opts.Since.IsZero() || opts.LastDuration > 0 {
		filters = append(filters, FilterByTime(opts.Since, opts.LastDuration))
	}

	return filters
}

// openOutput opens the output file or returns stdout.
//
// Behavior:
// - If outputFile is empty, returns os.Stdout (default behavior)
// - If outputFile is specified, creates/truncates the file
//
// The returned writer should be closed by the caller if it's a file.
func openOutput(outputFile string) (io.Writer, error) {
	if outputFile == "" {
		return os.Stdout, nil
	}

	file, err := os.Create(outputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", outputFile, err)
	}

	return file, nil
}
