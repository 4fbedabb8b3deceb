package loggen

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// writeXmlaRequest emits one MDX request header line. Successful requests
// carry the response size; the SOAP envelope itself rides on the line only
// when the scenario logs response bodies.
func writeXmlaRequest(w io.Writer, cfg GenConfig, m ModelGen, runID string, s *session, q queryRef, f *gofakeit.Faker) int {
	durMs := int64(f.Number(50, 30000))
	started := s.clock
	ended := started.Add(time.Duration(durMs) * time.Millisecond)
	stamp := ended.UTC().Format(stampLayout)

	status := "SUCCEEDED"
	failed := f.Float64Range(0, 1) < cfg.ErrorRate
	if failed {
		status = "FAILED"
	}

	line := fmt.Sprintf("%s INFO XmlaLogger: - xmlaLog gatlingRunId='%s' status='%s' gatlingSessionId=%d model='%s' cube='%s' catalog='%s' queryName='%s' atscaleQueryId='%s' inboundTextAsHash='%s' start=%d end=%d duration=%d",
		stamp, runID, status, s.id, m.Name, m.CubeName(), m.CatalogName(), q.Name, f.UUID(), q.Hash,
		started.UnixMilli(), ended.UnixMilli(), durMs)
	if !failed {
		env := soapEnvelope(f, s.id)
		line += fmt.Sprintf(" responseSize=%d", len(env))
		if m.ResponseBody {
			line += " response=" + env
		}
	}
	fmt.Fprintln(w, line)

	s.clock = ended.Add(time.Duration(f.Number(200, 3000)) * time.Millisecond)
	return 1
}

// soapEnvelope renders a single-line Execute response the way the XMLA
// endpoint returns one. LastDataUpdate moves per call to mimic cube
// refreshes; the rowset is the stable payload.
func soapEnvelope(f *gofakeit.Faker, sessionID int64) string {
	var b strings.Builder
	b.WriteString(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">`)
	fmt.Fprintf(&b, `<soap:Header><Session SessionId="s-%d"/></soap:Header>`, sessionID)
	b.WriteString(`<soap:Body><ExecuteResponse><root>`)
	refreshed := runEpoch.Add(-time.Duration(f.Number(1, 72)) * time.Hour)
	fmt.Fprintf(&b, `<LastDataUpdate xmlns="urn:schemas-microsoft-com:xml-analysis:mddataset">%s</LastDataUpdate>`,
		refreshed.Format("2006-01-02T15:04:05"))
	for i, n := 0, f.Number(1, 20); i < n; i++ {
		fmt.Fprintf(&b, "<row><Region>%s</Region><Amount>%d</Amount></row>",
			RandomRegion(f), f.Number(100, 250000))
	}
	b.WriteString(`</root></ExecuteResponse></soap:Body></soap:Envelope>`)
	return b.String()
}
