package loggen

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// writeJdbcRequest emits one SQL request: a header line plus, when the
// scenario logs result sets, one detail line per returned row. Returns the
// number of lines written.
func writeJdbcRequest(w io.Writer, cfg GenConfig, m ModelGen, runID string, s *session, q queryRef, f *gofakeit.Faker) int {
	durMs := int64(f.Number(20, 15000))
	started := s.clock
	ended := started.Add(time.Duration(durMs) * time.Millisecond)
	stamp := ended.UTC().Format(stampLayout)

	status := "SUCCEEDED"
	failed := f.Float64Range(0, 1) < cfg.ErrorRate
	if failed {
		status = "FAILED"
	}

	line := fmt.Sprintf("%s INFO JdbcLogger: - jdbcLog gatlingRunId='%s' status='%s' gatlingSessionId=%d model='%s' queryName='%s' atscaleQueryId='%s' inboundTextAsHash='%s' start=%d end=%d duration=%d",
		stamp, runID, status, s.id, m.Name, q.Name, f.UUID(), q.Hash,
		started.UnixMilli(), ended.UnixMilli(), durMs)

	lines := 1
	if failed {
		fmt.Fprintln(w, line)
	} else {
		rows := f.Number(1, cfg.MaxRows)
		fmt.Fprintf(w, "%s rows=%d\n", line, rows)
		if m.ResultSetRows {
			for i := 1; i <= rows; i++ {
				fmt.Fprintf(w, "%s INFO JdbcLogger: - jdbcLog gatlingRunId='%s' gatlingSessionId=%d model='%s' queryName='%s' inboundTextAsHash='%s' rownumber=%d row=Map(%s) rowhash=%s\n",
					stamp, runID, s.id, m.Name, q.Name, q.Hash, i, rowCells(f), hexToken(f, 6))
				lines++
			}
		}
	}

	s.clock = ended.Add(time.Duration(f.Number(200, 3000)) * time.Millisecond)
	return lines
}

// rowCells renders one result row the way the scenario logs Scala Map
// contents. Values stay clear of quotes and parens so the row map token
// survives the trip back through the log grammar.
func rowCells(f *gofakeit.Faker) string {
	parts := []string{
		fmt.Sprintf("region -> %s", RandomRegion(f)),
		fmt.Sprintf("product -> %s", RandomProduct(f)),
		fmt.Sprintf("total -> %d", f.Number(100, 250000)),
	}
	if f.Bool() {
		parts = append(parts, fmt.Sprintf("qty -> %d", f.Number(1, 500)))
	}
	return strings.Join(parts, ", ")
}
