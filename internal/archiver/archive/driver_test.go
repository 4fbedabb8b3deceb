package archive

import (
	"strings"
	"testing"
)

func TestNewDriver(t *testing.T) {
	for _, tc := range []struct {
		protocol string
		want     string
	}{
		{"jdbc", "jdbc"},
		{"sql", "jdbc"},
		{"xmla", "xmla"},
		{"soap", "xmla"},
	} {
		d, err := NewDriver(tc.protocol)
		if err != nil {
			t.Fatalf("NewDriver(%q): %v", tc.protocol, err)
		}
		if d.Protocol() != tc.want {
			t.Errorf("NewDriver(%q).Protocol() = %q, want %q", tc.protocol, d.Protocol(), tc.want)
		}
	}

	if _, err := NewDriver("grpc"); err == nil {
		t.Error("expected error for unsupported protocol")
	}
}

func TestLikePattern(t *testing.T) {
	got := LikePattern("perf|50 users|2025-08-14 10:30")
	want := "%gatlingRunId='perf|50 users|2025-08-14 10:30'%"
	if got != want {
		t.Errorf("LikePattern = %q, want %q", got, want)
	}
}

func TestJdbcDriverDDL(t *testing.T) {
	d := jdbcDriver{}
	ddl := strings.Join(d.DDL(), "\n")

	for _, obj := range []string{
		"GATLING_LOGS_STAGE",
		"GATLING_WHOLE_LINE_FMT",
		"GATLING_RAW_SQL_LOGS",
		"GATLING_SQL_LOGS",
		"GATLING_SQL_HEADERS",
		"GATLING_SQL_DETAILS",
		"V_GATLING_JOINED",
	} {
		if !strings.Contains(ddl, obj) {
			t.Errorf("jdbc DDL missing %s", obj)
		}
	}
	if !strings.Contains(ddl, "ATSCALE_QUERY_ID") {
		t.Error("parsed-layer table should carry ATSCALE_QUERY_ID")
	}
	if !strings.Contains(ddl, "RUN_KEY VARCHAR(64)") {
		t.Error("run key columns should be VARCHAR(64) hex digests")
	}
	// Only the view may be replaced on re-provision; tables and stages must
	// survive with their data.
	for _, stmt := range d.DDL() {
		if strings.Contains(stmt, "VIEW") {
			continue
		}
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Errorf("non-view DDL must be IF NOT EXISTS: %.60s", stmt)
		}
	}
}

func TestJdbcInsertSteps(t *testing.T) {
	d := jdbcDriver{}
	steps := d.InsertSteps("Sales_jdbc_open.log.gz")

	var names []string
	for _, s := range steps {
		names = append(names, s.Name)
	}
	if got, want := strings.Join(names, ","), "sql_logs,headers,details"; got != want {
		t.Fatalf("step order = %s, want %s", got, want)
	}

	for _, s := range steps {
		if !strings.Contains(s.SQL, "NOT EXISTS") {
			t.Errorf("step %s is missing its idempotency guard", s.Name)
		}
	}

	if sql := steps[0].SQL; !strings.Contains(sql, "src_filename = 'Sales_jdbc_open.log.gz'") {
		t.Errorf("sql_logs step not scoped to the staged file:\n%s", sql)
	}

	runID := "perf|10 users|2025-08-14"
	args := steps[0].Args(runID)
	if len(args) != 2 || args[0] != LikePattern(runID) || args[1] != runID {
		t.Errorf("sql_logs args = %v", args)
	}
	args = steps[1].Args(runID)
	if len(args) != 2 || args[0] != runID || args[1] != runID {
		t.Errorf("headers args = %v", args)
	}
}

func TestJdbcCopyEscapesFileName(t *testing.T) {
	sql := jdbcDriver{}.CopySQL("odd'name.log.gz")
	if !strings.Contains(sql, "FILES = ('odd''name.log.gz')") {
		t.Errorf("staged file name not escaped:\n%s", sql)
	}
}

func TestXmlaDriverDDL(t *testing.T) {
	ddl := strings.Join(xmlaDriver{}.DDL(), "\n")
	for _, obj := range []string{
		"XMLA_LOGS_STAGE",
		"XMLA_WHOLE_LINE_FMT",
		"GATLING_RAW_XMLA_LOGS",
		"GATLING_XMLA_HEADERS",
		"GATLING_XMLA_RESPONSES",
	} {
		if !strings.Contains(ddl, obj) {
			t.Errorf("xmla DDL missing %s", obj)
		}
	}
	if !strings.Contains(ddl, "SOAP_BODY VARIANT") {
		t.Error("responses table should hold SOAP_BODY as VARIANT")
	}
}

func TestXmlaInsertSteps(t *testing.T) {
	steps := xmlaDriver{}.InsertSteps("Sales_xmla_open.log.gz")
	if len(steps) != 2 || steps[0].Name != "headers" || steps[1].Name != "responses" {
		t.Fatalf("unexpected steps: %+v", steps)
	}

	headers := steps[0].SQL
	if !strings.Contains(headers, "ORDER BY") {
		t.Error("headers insert lost its ordering clause")
	}
	if !strings.Contains(headers, "'s'") {
		t.Error("envelope extraction must run with the dotall flag")
	}

	responses := steps[1].SQL
	if !strings.Contains(responses, "<LastDataUpdate>0</LastDataUpdate>") {
		t.Error("responses insert must pin LastDataUpdate before hashing")
	}
	if !strings.Contains(responses, "SHA2(MODIFIED_SOAP_BODY_STR, 256)") {
		t.Error("responses insert must hash the normalized body")
	}
}

// Both protocols must derive RUN_KEY with the same expression the line
// parsers use, or joins across layers drift apart.
func TestRunKeyExpressionShared(t *testing.T) {
	jdbcSQL := insertSqlHeadersSQL
	xmlaSQL := insertXmlaHeadersSQL
	for _, sql := range []string{jdbcSQL, insertSqlDetailsSQL, xmlaSQL} {
		if !strings.Contains(sql, runKeySQL) {
			t.Errorf("insert does not use the shared run key expression:\n%.80s", sql)
		}
	}
	for _, col := range []string{"GATLING_RUN_ID", "GATLING_SESSION_ID", "MODEL", "QUERY_HASH"} {
		if !strings.Contains(runKeySQL, col) {
			t.Errorf("run key expression missing %s", col)
		}
	}
	if !strings.Contains(runKeySQL, "256") {
		t.Error("run key must be SHA-256")
	}
}

func TestDeleteRawSQLTargetsRawLayer(t *testing.T) {
	if sql := (jdbcDriver{}).DeleteRawSQL(); !strings.Contains(sql, "GATLING_RAW_SQL_LOGS") {
		t.Errorf("jdbc delete targets wrong table: %s", sql)
	}
	if sql := (xmlaDriver{}).DeleteRawSQL(); !strings.Contains(sql, "GATLING_RAW_XMLA_LOGS") {
		t.Errorf("xmla delete targets wrong table: %s", sql)
	}
}
