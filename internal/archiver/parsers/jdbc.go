package parsers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// JdbcParser parses the SQL-protocol session log lines produced by the
// JDBC scenarios. A line is either a request header or, when the scenario
// logs result sets, one rownumber= detail row.
type JdbcParser struct {
	opts ParserOptions
}

// NewJdbcParser constructs a JdbcParser.
func NewJdbcParser(opts ParserOptions) *JdbcParser {
	return &JdbcParser{opts: opts}
}

// JDBC-only tokens. Detail example:
//
//	... - jdbcLog gatlingRunId='abc' gatlingSessionId=4 model='Sales' inboundTextAsHash='h1' rownumber=2 row=Map(region -> EMEA, total -> 1200) rowhash=9f2c4d
var (
	rowsRe      = numberRe("rows")
	rowNumberRe = numberRe("rownumber")
	rowMapRe    = regexp.MustCompile(`row=Map\((.*?)\)`)
	rowHashRe   = regexp.MustCompile(`rowhash=([a-f0-9]+)`)
)

// ParseLine parses one jdbcLog line. Lines without a gatlingRunId token are
// skipped unless they carry the jdbcLog marker, in which case they are
// reported as unusable.
func (p *JdbcParser) ParseLine(ctx context.Context, line string) (*Event, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, ErrSkipLine
	}

	runID := group1(runIDRe, line)
	if runID == "" {
		if group1(msgKindRe, line) == "jdbcLog" {
			return nil, fmt.Errorf("jdbcLog line missing gatlingRunId")
		}
		return nil, ErrSkipLine
	}

	ev := newEvent("jdbc", line)
	ev.RunID = runID
	ev.Status = ptrString(group1(statusRe, line))
	ev.SessionID = int64PtrFromString(group1(sessionIDRe, line))
	ev.Model = ptrString(group1(modelRe, line))
	ev.QueryName = ptrString(group1(queryNameRe, line))
	ev.QueryHash = ptrString(group1(queryHashRe, line))
	ev.AtScaleQueryID = ptrString(group1(atscaleQueryIDRe, line))
	ev.StartMs = int64PtrFromString(group1(startRe, line))
	ev.EndMs = int64PtrFromString(group1(endRe, line))
	ev.DurationMs = int64PtrFromString(group1(durationRe, line))

	if rn := int64PtrFromString(group1(rowNumberRe, line)); rn != nil {
		ev.Kind = KindDetail
		ev.RowNumber = rn
		ev.RowMap = ptrString(group1(rowMapRe, line))
		ev.RowHash = ptrString(group1(rowHashRe, line))
	} else {
		ev.Kind = KindHeader
		ev.RowsReturned = int64PtrFromString(group1(rowsRe, line))
	}

	ev.RunKey = RunKey(ev.RunID, ev.SessionID, ev.Model, ev.QueryHash)
	if p.opts.EmitRaw {
		ev.RawLine = ptrString(line)
	}
	return ev, nil
}
