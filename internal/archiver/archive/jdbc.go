package archive

import "fmt"

// jdbcDriver archives JDBC session logs into the GATLING_SQL_* tables.
//
// Layers: GATLING_RAW_SQL_LOGS holds whole lines, GATLING_SQL_LOGS the
// regexp-parsed fields, GATLING_SQL_HEADERS / GATLING_SQL_DETAILS the split
// by rownumber presence, and V_GATLING_JOINED joins headers to details on
// run id, session id, model and query hash.
type jdbcDriver struct{}

func (jdbcDriver) Protocol() string { return "jdbc" }
func (jdbcDriver) Stage() string    { return "GATLING_LOGS_STAGE" }

func (jdbcDriver) DDL() []string {
	return []string{
		`CREATE STAGE IF NOT EXISTS GATLING_LOGS_STAGE
  FILE_FORMAT = (TYPE = CSV FIELD_DELIMITER = '\t')`,

		// Whole-line format: tab delimiter never occurs in the logs, so each
		// line lands in $1 untouched. Trimming and null conversion must stay
		// off or raw lines would no longer round-trip.
		`CREATE FILE FORMAT IF NOT EXISTS GATLING_WHOLE_LINE_FMT
  TYPE = 'CSV'
  FIELD_DELIMITER = '\t'
  SKIP_HEADER = 0
  TRIM_SPACE = FALSE
  FIELD_OPTIONALLY_ENCLOSED_BY = NONE
  EMPTY_FIELD_AS_NULL = FALSE
  NULL_IF = ()`,

		`CREATE TABLE IF NOT EXISTS GATLING_RAW_SQL_LOGS (
  RAW_LINE VARCHAR(16777216),
  SRC_FILENAME VARCHAR(16777216),
  SRC_ROW_NUMBER NUMBER(38,0)
)`,

		`CREATE TABLE IF NOT EXISTS GATLING_SQL_LOGS (
  TS TIMESTAMP_NTZ(9),
  LEVEL VARCHAR(16777216),
  LOGGER VARCHAR(16777216),
  MESSAGE_KIND VARCHAR(16777216),
  GATLING_RUN_ID VARCHAR(16777216),
  STATUS VARCHAR(16777216),
  GATLING_SESSION_ID NUMBER(38,0),
  MODEL VARCHAR(16777216),
  QUERY_NAME VARCHAR(16777216),
  ATSCALE_QUERY_ID VARCHAR(16777216),
  QUERY_HASH VARCHAR(16777216),
  START_MS NUMBER(38,0),
  END_MS NUMBER(38,0),
  DURATION_MS NUMBER(38,0),
  ROWS_RETURNED NUMBER(38,0),
  ROWNUMBER NUMBER(38,0),
  ROW_MAP_RAW VARCHAR(16777216),
  ROW_HASH VARCHAR(16777216),
  SRC_FILENAME VARCHAR(16777216),
  SRC_ROW_NUMBER NUMBER(38,0),
  RAW_LINE VARCHAR(16777216)
)`,

		`CREATE TABLE IF NOT EXISTS GATLING_SQL_DETAILS CLUSTER BY (GATLING_RUN_ID) (
  RUN_KEY VARCHAR(64),
  TS TIMESTAMP_NTZ(9),
  LEVEL VARCHAR(16777216),
  LOGGER VARCHAR(16777216),
  MESSAGE_KIND VARCHAR(16777216),
  GATLING_RUN_ID VARCHAR(16777216),
  STATUS VARCHAR(16777216),
  GATLING_SESSION_ID NUMBER(38,0),
  MODEL VARCHAR(16777216),
  QUERY_NAME VARCHAR(16777216),
  QUERY_HASH VARCHAR(16777216),
  ROWNUMBER NUMBER(38,0),
  ROW_MAP_RAW VARCHAR(16777216),
  ROW_HASH VARCHAR(16777216),
  START_MS NUMBER(38,0),
  END_MS NUMBER(38,0),
  DURATION_MS NUMBER(38,0),
  ROWS_RETURNED NUMBER(38,0),
  SRC_FILENAME VARCHAR(16777216),
  SRC_ROW_NUMBER NUMBER(38,0),
  RAW_LINE VARCHAR(16777216)
)`,

		`CREATE TABLE IF NOT EXISTS GATLING_SQL_HEADERS CLUSTER BY (GATLING_RUN_ID) (
  RUN_KEY VARCHAR(64),
  TS TIMESTAMP_NTZ(9),
  LEVEL VARCHAR(16777216),
  LOGGER VARCHAR(16777216),
  MESSAGE_KIND VARCHAR(16777216),
  GATLING_RUN_ID VARCHAR(16777216),
  STATUS VARCHAR(16777216),
  GATLING_SESSION_ID NUMBER(38,0),
  MODEL VARCHAR(16777216),
  QUERY_NAME VARCHAR(16777216),
  QUERY_HASH VARCHAR(16777216),
  START_MS NUMBER(38,0),
  END_MS NUMBER(38,0),
  DURATION_MS NUMBER(38,0),
  ROWS_RETURNED NUMBER(38,0),
  SRC_FILENAME VARCHAR(16777216),
  SRC_ROW_NUMBER NUMBER(38,0),
  RAW_LINE VARCHAR(16777216)
)`,

		// The run id encodes "<testName>|<N> users|<runTime>"; the view splits
		// it so dashboards can group by test and concurrency without string
		// surgery of their own.
		`CREATE OR REPLACE VIEW V_GATLING_JOINED AS
SELECT
    h.run_key,
    TRIM(SPLIT_PART(h.gatling_run_id, '|', 1)) AS test_name,
    TRY_TO_NUMBER(REGEXP_SUBSTR(SPLIT_PART(h.gatling_run_id, '|', 2), '[0-9]+')) AS concurrent_users,
    TRIM(SPLIT_PART(h.gatling_run_id, '|', 3)) AS test_run_time,
    h.ts AS header_ts,
    h.level AS header_level,
    h.logger AS header_logger,
    h.message_kind AS header_message_kind,
    h.gatling_run_id,
    h.status,
    h.gatling_session_id,
    h.model,
    h.query_name,
    h.query_hash,
    h.start_ms AS header_start_ms,
    h.end_ms AS header_end_ms,
    h.duration_ms AS header_duration_ms,
    h.rows_returned AS header_rows_returned,
    h.src_filename AS header_src_filename,
    h.src_row_number AS header_src_row_number,
    d.ts AS detail_ts,
    d.rownumber,
    d.row_map_raw,
    d.row_hash,
    d.src_filename AS detail_src_filename,
    d.src_row_number AS detail_src_row_number,
    d.raw_line AS detail_raw_line
FROM gatling_sql_headers h
JOIN gatling_sql_details d
  ON h.gatling_run_id = d.gatling_run_id
 AND h.gatling_session_id = d.gatling_session_id
 AND h.model = d.model
 AND h.query_hash = d.query_hash`,
	}
}

func (jdbcDriver) DeleteRawSQL() string {
	return `DELETE FROM GATLING_RAW_SQL_LOGS WHERE RAW_LINE LIKE ?`
}

func (jdbcDriver) CopySQL(stagedFile string) string {
	return fmt.Sprintf(`COPY INTO GATLING_RAW_SQL_LOGS (RAW_LINE, SRC_FILENAME, SRC_ROW_NUMBER)
FROM (
  SELECT
    $1 AS RAW_LINE,
    METADATA$FILENAME AS SRC_FILENAME,
    METADATA$FILE_ROW_NUMBER AS SRC_ROW_NUMBER
  FROM @GATLING_LOGS_STAGE
)
FILES = ('%s')
FILE_FORMAT = (FORMAT_NAME = GATLING_WHOLE_LINE_FMT)
PURGE = TRUE
ON_ERROR = 'ABORT_STATEMENT'`, sqlEscape(stagedFile))
}

func (d jdbcDriver) InsertSteps(stagedFile string) []InsertStep {
	return []InsertStep{
		{
			Name: "sql_logs",
			SQL:  insertSqlLogsSQL(stagedFile),
			Args: func(runID string) []any { return []any{LikePattern(runID), runID} },
		},
		{
			Name: "headers",
			SQL:  insertSqlHeadersSQL,
			Args: func(runID string) []any { return []any{runID, runID} },
		},
		{
			Name: "details",
			SQL:  insertSqlDetailsSQL,
			Args: func(runID string) []any { return []any{runID, runID} },
		},
	}
}

// insertSqlLogsSQL parses raw lines into typed columns with the same token
// grammar the line parsers use. The logger matcher requires a leading letter
// so it cannot latch onto the time-of-day token, and numeric fields go
// through try_to_number so a mangled line yields NULL instead of failing the
// whole statement. The NOT EXISTS gate keys on the headers table: once a run
// id has been promoted past the parsed layer, re-parsing it is skipped.
func insertSqlLogsSQL(stagedFile string) string {
	return fmt.Sprintf(`INSERT INTO GATLING_SQL_LOGS (
    TS, LEVEL, LOGGER, MESSAGE_KIND, GATLING_RUN_ID, STATUS,
    GATLING_SESSION_ID, MODEL, QUERY_NAME, ATSCALE_QUERY_ID, QUERY_HASH,
    START_MS, END_MS, DURATION_MS, ROWS_RETURNED,
    ROWNUMBER, ROW_MAP_RAW, ROW_HASH,
    SRC_FILENAME, SRC_ROW_NUMBER, RAW_LINE
)
SELECT
    to_timestamp_ntz(regexp_substr(raw_line, '^[0-9]{4}-[0-9]{2}-[0-9]{2} [0-9]{2}:[0-9]{2}:[0-9]{2}')) as ts,
    regexp_substr(raw_line, '^[^ ]+ [^ ]+ ([A-Z]+)', 1, 1, 'e', 1) as level,
    regexp_replace(regexp_substr(raw_line, ' [A-Za-z][A-Za-z0-9_\\.]*:', 1, 1), '[: ]', '') as logger,
    regexp_substr(raw_line, '- ([A-Za-z0-9_]+)', 1, 1, 'e', 1) as message_kind,

    regexp_substr(raw_line, 'gatlingRunId=''([^'']*)''', 1, 1, 'e', 1) as gatling_run_id,
    regexp_substr(raw_line, 'status=''([^'']*)''', 1, 1, 'e', 1) as status,
    try_to_number(regexp_substr(raw_line, 'gatlingSessionId=([0-9]+)', 1, 1, 'e', 1)) as gatling_session_id,
    regexp_substr(raw_line, 'model=''([^'']*)''', 1, 1, 'e', 1) as model,
    regexp_substr(raw_line, 'queryName=''([^'']*)''', 1, 1, 'e', 1) as query_name,
    regexp_substr(raw_line, 'atscaleQueryId=''([^'']*)''', 1, 1, 'e', 1) as atscale_query_id,
    regexp_substr(raw_line, 'inboundTextAsHash=''([^'']*)''', 1, 1, 'e', 1) as query_hash,

    try_to_number(regexp_substr(raw_line, 'start=([0-9]+)', 1, 1, 'e', 1)) as start_ms,
    try_to_number(regexp_substr(raw_line, 'end=([0-9]+)', 1, 1, 'e', 1)) as end_ms,
    try_to_number(regexp_substr(raw_line, 'duration=([0-9]+)', 1, 1, 'e', 1)) as duration_ms,
    try_to_number(regexp_substr(raw_line, 'rows=([0-9]+)', 1, 1, 'e', 1)) as rows_returned,

    try_to_number(regexp_substr(raw_line, 'rownumber=([0-9]+)', 1, 1, 'e', 1)) as rownumber,
    regexp_substr(raw_line, 'row=Map\\((.*?)\\)', 1, 1, 'e', 1) as row_map_raw,
    regexp_substr(raw_line, 'rowhash=([a-f0-9]+)', 1, 1, 'e', 1) as row_hash,

    src_filename,
    src_row_number,
    raw_line
FROM GATLING_RAW_SQL_LOGS
WHERE src_filename = '%s'
AND raw_line LIKE ?
AND NOT EXISTS (
    SELECT gatling_run_id FROM gatling_sql_headers
    WHERE gatling_run_id = ?
    LIMIT 1
)`, sqlEscape(stagedFile))
}

// Header rows are the per-query summary lines, recognizable by a missing
// rownumber token.
const insertSqlHeadersSQL = `INSERT INTO GATLING_SQL_HEADERS (
    RUN_KEY, TS, LEVEL, LOGGER, MESSAGE_KIND, GATLING_RUN_ID, STATUS,
    GATLING_SESSION_ID, MODEL, QUERY_NAME, QUERY_HASH,
    START_MS, END_MS, DURATION_MS, ROWS_RETURNED,
    SRC_FILENAME, SRC_ROW_NUMBER, RAW_LINE
)
SELECT
    ` + runKeySQL + ` AS run_key,
    ts,
    level,
    logger,
    message_kind,
    gatling_run_id,
    status,
    gatling_session_id,
    model,
    query_name,
    query_hash,
    start_ms,
    end_ms,
    duration_ms,
    rows_returned,
    src_filename,
    src_row_number,
    raw_line
FROM gatling_sql_logs
WHERE rownumber IS NULL
AND GATLING_RUN_ID = ?
AND NOT EXISTS (
    SELECT 1 FROM GATLING_SQL_HEADERS
    WHERE gatling_run_id = ?
    LIMIT 1
)`

const insertSqlDetailsSQL = `INSERT INTO GATLING_SQL_DETAILS (
    RUN_KEY, TS, LEVEL, LOGGER, MESSAGE_KIND, GATLING_RUN_ID, STATUS,
    GATLING_SESSION_ID, MODEL, QUERY_NAME, QUERY_HASH,
    ROWNUMBER, ROW_MAP_RAW, ROW_HASH,
    START_MS, END_MS, DURATION_MS, ROWS_RETURNED,
    SRC_FILENAME, SRC_ROW_NUMBER, RAW_LINE
)
SELECT
    ` + runKeySQL + ` AS run_key,
    ts,
    level,
    logger,
    message_kind,
    gatling_run_id,
    status,
    gatling_session_id,
    model,
    query_name,
    query_hash,
    rownumber,
    row_map_raw,
    row_hash,
    start_ms,
    end_ms,
    duration_ms,
    rows_returned,
    src_filename,
    src_row_number,
    raw_line
FROM gatling_sql_logs
WHERE rownumber IS NOT NULL
AND GATLING_RUN_ID = ?
AND NOT EXISTS (
    SELECT 1 FROM GATLING_SQL_DETAILS
    WHERE gatling_run_id = ?
    LIMIT 1
)`
