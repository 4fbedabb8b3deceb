// Package runner hosts the local inspection loop: parse a Gatling log with
// the same grammar the warehouse layer uses and emit NDJSON events, without
// touching Snowflake. It exists for triage, so bad lines are recorded and
// skipped rather than aborting the pass.
package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/logger"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/parsers"
)

// maxLineBytes bounds the scanner buffer; XMLA lines carry whole SOAP
// envelopes and routinely blow past bufio's default.
const maxLineBytes = 16 * 1024 * 1024

// RunSummary is the NDJSON record appended to the run log after each pass.
type RunSummary struct {
	Timestamp     string `json:"timestamp"`
	Input         string `json:"input"`
	Protocol      string `json:"protocol"`
	RawCount      int    `json:"raw_count"`
	ParsedCount   int    `json:"parsed_count"`
	HeaderCount   int    `json:"header_count"`
	DetailCount   int    `json:"detail_count"`
	RejectedCount int    `json:"rejected_count"`
	ErrorCount    int    `json:"error_count"`
	DurationMs    int64  `json:"duration_ms"`
}

// rejectRecord is one line the parser refused, written to the reject stream.
// The id gives humans something to grep for when cross-referencing logs.
type rejectRecord struct {
	RejectID string `json:"reject_id"`
	Line     int    `json:"line"`
	Reason   string `json:"reason"`
	Raw      string `json:"raw"`
}

// InspectOptions configures one inspect pass.
type InspectOptions struct {
	// Input names the source in the summary; the data itself comes from the
	// reader passed to RunInspect.
	Input    string
	Protocol string

	// RejectFile, when non-empty, receives NDJSON rejectRecords in append
	// mode.
	RejectFile string

	// RunLog, when non-empty, gets the RunSummary appended as NDJSON.
	RunLog string
}

// inspectEncoder pairs the event stream with the optional reject stream.
type inspectEncoder struct {
	events  *json.Encoder
	rejects *json.Encoder
}

func newInspectEncoder(out, reject io.Writer) *inspectEncoder {
	e := &inspectEncoder{events: json.NewEncoder(out)}
	if reject != nil {
		e.rejects = json.NewEncoder(reject)
	}
	return e
}

func (e *inspectEncoder) reject(lineNo int, reason, raw string) error {
	if e.rejects == nil {
		return nil
	}
	rec := rejectRecord{
		RejectID: uuid.NewString(),
		Line:     lineNo,
		Reason:   reason,
		Raw:      raw,
	}
	if err := e.rejects.Encode(rec); err != nil {
		return fmt.Errorf("encode reject: %w", err)
	}
	return nil
}

// RunInspect parses in line by line and writes one NDJSON event per parsed
// line to out. Lines the parser skips or fails on land in the reject stream;
// only I/O problems (unreadable input, unwritable output) are fatal.
func RunInspect(ctx context.Context, p parsers.Parser, in io.Reader, out io.Writer, opts InspectOptions) (*RunSummary, error) {
	log := logger.L()
	log.Infow("starting inspect pass",
		"input", opts.Input,
		"protocol", opts.Protocol,
		"reject_file", opts.RejectFile)

	var rejectFile io.WriteCloser
	if opts.RejectFile != "" {
		f, err := os.OpenFile(opts.RejectFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open reject file: %w", err)
		}
		rejectFile = f
		defer rejectFile.Close()
	}

	enc := newInspectEncoder(out, rejectFile)
	summary := &RunSummary{
		Input:    opts.Input,
		Protocol: opts.Protocol,
	}
	start := time.Now()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		summary.RawCount++
		if summary.RawCount%1000 == 0 {
			log.Infow("inspect progress",
				"lines", summary.RawCount,
				"parsed", summary.ParsedCount,
				"rejected", summary.RejectedCount)
		}

		line := scanner.Text()
		evt, err := p.ParseLine(ctx, line)
		switch {
		case errors.Is(err, parsers.ErrSkipLine):
			summary.RejectedCount++
			if err := enc.reject(summary.RawCount, "no query log token", line); err != nil {
				return summary, err
			}
		case err != nil:
			summary.RejectedCount++
			summary.ErrorCount++
			log.Warnw("unparseable line", "line_number", summary.RawCount, "error", err)
			if err := enc.reject(summary.RawCount, err.Error(), line); err != nil {
				return summary, err
			}
		case evt == nil:
			summary.RejectedCount++
			summary.ErrorCount++
			if err := enc.reject(summary.RawCount, "parser returned no event", line); err != nil {
				return summary, err
			}
		default:
			summary.ParsedCount++
			switch evt.Kind {
			case parsers.KindHeader:
				summary.HeaderCount++
			case parsers.KindDetail:
				summary.DetailCount++
			}
			if err := enc.events.Encode(evt); err != nil {
				return summary, fmt.Errorf("encode event: %w", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("scan input: %w", err)
	}

	summary.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	summary.DurationMs = time.Since(start).Milliseconds()

	if opts.RunLog != "" {
		if err := appendRunLog(opts.RunLog, summary); err != nil {
			log.Errorw("failed to append run log", "path", opts.RunLog, "error", err)
		}
	}

	log.Infow("completed inspect pass",
		"lines", summary.RawCount,
		"parsed", summary.ParsedCount,
		"headers", summary.HeaderCount,
		"details", summary.DetailCount,
		"rejected", summary.RejectedCount,
		"errors", summary.ErrorCount,
		"duration_ms", summary.DurationMs)
	return summary, nil
}

func appendRunLog(path string, summary *RunSummary) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(summary)
}
