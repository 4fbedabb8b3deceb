package parsers

import (
	"regexp"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
)

// Line prefix shared by both protocols. Example:
//
//	2025-01-15 10:30:22 INFO JdbcLogger: - jdbcLog gatlingRunId='abc123' status='SUCCEEDED' ...
//
// The logger matcher requires a leading letter so the time-of-day token
// (" 10:") can never win the leftmost match.
var (
	tsRe      = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2} [0-9]{2}:[0-9]{2}:[0-9]{2}`)
	levelRe   = regexp.MustCompile(`^[^ ]+ [^ ]+ ([A-Z]+)`)
	loggerRe  = regexp.MustCompile(` ([A-Za-z][A-Za-z0-9_\.]*):`)
	msgKindRe = regexp.MustCompile(`- ([A-Za-z0-9_]+)`)
)

// key='value' and key=123 tokens common to both protocols. Values are
// matched anywhere in the line, first occurrence wins; the real tokens
// precede any payload tail (row maps, SOAP envelopes).
var (
	runIDRe          = quotedRe("gatlingRunId")
	statusRe         = quotedRe("status")
	modelRe          = quotedRe("model")
	queryNameRe      = quotedRe("queryName")
	queryHashRe      = quotedRe("inboundTextAsHash")
	atscaleQueryIDRe = quotedRe("atscaleQueryId")
	sessionIDRe      = numberRe("gatlingSessionId")
	startRe          = numberRe("start")
	endRe            = numberRe("end")
	durationRe       = numberRe("duration")
)

// newEvent seeds an Event with the fields every line carries: a fresh
// event id plus the timestamp/level/logger/message-kind prefix.
func newEvent(protocol, line string) *Event {
	return &Event{
		EventID:     uuid.NewString(),
		Protocol:    protocol,
		Timestamp:   normalizeTimestamp(tsRe.FindString(line)),
		Level:       group1(levelRe, line),
		Logger:      group1(loggerRe, line),
		MessageKind: group1(msgKindRe, line),
	}
}

// normalizeTimestamp tries to parse any timestamp string using dateparse.
// Returns RFC3339Nano UTC, the canonical form for inspect output.
// Gatling log prefixes carry no zone; they are treated as UTC.
func normalizeTimestamp(s string) string {
	if s == "" {
		return ""
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// quotedRe builds the matcher for a key='value' token. Values may be empty;
// single quotes never appear inside (the generator escapes them away).
func quotedRe(key string) *regexp.Regexp {
	return regexp.MustCompile(key + `='([^']*)'`)
}

// numberRe builds the matcher for a bare numeric key=123 token.
func numberRe(key string) *regexp.Regexp {
	return regexp.MustCompile(key + `=([0-9]+)`)
}

// group1 returns the first capture of re in s, or "" when unmatched.
func group1(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// ptrString returns a *string or nil for empty input.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// int64PtrFromString parses a decimal token. Malformed values yield nil
// rather than an error; a bad numeric field never kills the line.
func int64PtrFromString(s string) *int64 {
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &v
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
