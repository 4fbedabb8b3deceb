package archive

import "fmt"

// xmlaDriver archives XMLA/SOAP session logs. Unlike the jdbc side there is
// no standalone parsed layer: headers are extracted straight from the raw
// table, and the responses table is derived from headers by XML-parsing the
// captured envelope.
type xmlaDriver struct{}

func (xmlaDriver) Protocol() string { return "xmla" }
func (xmlaDriver) Stage() string    { return "XMLA_LOGS_STAGE" }

func (xmlaDriver) DDL() []string {
	return []string{
		`CREATE STAGE IF NOT EXISTS XMLA_LOGS_STAGE
  FILE_FORMAT = (TYPE = CSV FIELD_DELIMITER = '\t')`,

		`CREATE FILE FORMAT IF NOT EXISTS XMLA_WHOLE_LINE_FMT
  TYPE = 'CSV'
  FIELD_DELIMITER = '\t'
  SKIP_HEADER = 0
  TRIM_SPACE = FALSE
  FIELD_OPTIONALLY_ENCLOSED_BY = NONE
  EMPTY_FIELD_AS_NULL = FALSE
  NULL_IF = ()`,

		`CREATE TABLE IF NOT EXISTS GATLING_RAW_XMLA_LOGS (
  RAW_SOAP VARCHAR(16777216),
  SRC_FILENAME VARCHAR(16777216),
  SRC_ROW_NUMBER NUMBER(38,0)
)`,

		`CREATE TABLE IF NOT EXISTS GATLING_XMLA_HEADERS CLUSTER BY (GATLING_RUN_ID) (
  RUN_KEY VARCHAR(64),
  TS TIMESTAMP_NTZ(9),
  LEVEL VARCHAR(16777216),
  LOGGER VARCHAR(16777216),
  MESSAGE_KIND VARCHAR(16777216),
  GATLING_RUN_ID VARCHAR(512) NOT NULL,
  STATUS VARCHAR(12),
  GATLING_SESSION_ID NUMBER(8,0),
  MODEL VARCHAR(1024),
  CUBE VARCHAR(1024),
  CATALOG VARCHAR(1024),
  QUERY_NAME VARCHAR(1024),
  QUERY_HASH VARCHAR(256),
  START_MS NUMBER(38,0),
  END_MS NUMBER(38,0),
  DURATION_MS NUMBER(38,0),
  RESPONSE_SIZE NUMBER(38,0),
  RAW_SOAP VARCHAR(16777216),
  PRIMARY KEY (RUN_KEY)
)`,

		`CREATE TABLE IF NOT EXISTS GATLING_XMLA_RESPONSES CLUSTER BY (GATLING_RUN_ID) (
  RUN_KEY VARCHAR(64),
  GATLING_RUN_ID VARCHAR(512),
  STATUS VARCHAR(12),
  GATLING_SESSION_ID NUMBER(8,0),
  MODEL VARCHAR(1024),
  CUBE VARCHAR(1024),
  CATALOG VARCHAR(1024),
  QUERY_NAME VARCHAR(1024),
  QUERY_HASH VARCHAR(256),
  SOAP_HEADER VARIANT,
  SOAP_BODY VARIANT,
  SOAP_BODY_HASH VARCHAR(256),
  PRIMARY KEY (RUN_KEY)
)`,
	}
}

func (xmlaDriver) DeleteRawSQL() string {
	return `DELETE FROM GATLING_RAW_XMLA_LOGS WHERE RAW_SOAP LIKE ?`
}

func (xmlaDriver) CopySQL(stagedFile string) string {
	return fmt.Sprintf(`COPY INTO GATLING_RAW_XMLA_LOGS (RAW_SOAP, SRC_FILENAME, SRC_ROW_NUMBER)
FROM (
  SELECT
    $1 AS RAW_SOAP,
    METADATA$FILENAME AS SRC_FILENAME,
    METADATA$FILE_ROW_NUMBER AS SRC_ROW_NUMBER
  FROM @XMLA_LOGS_STAGE
)
FILES = ('%s')
FILE_FORMAT = (FORMAT_NAME = XMLA_WHOLE_LINE_FMT)
PURGE = TRUE
ON_ERROR = 'ABORT_STATEMENT'`, sqlEscape(stagedFile))
}

func (d xmlaDriver) InsertSteps(stagedFile string) []InsertStep {
	return []InsertStep{
		{
			Name: "headers",
			SQL:  insertXmlaHeadersSQL,
			Args: func(runID string) []any { return []any{LikePattern(runID), runID} },
		},
		{
			Name: "responses",
			SQL:  insertXmlaResponsesSQL,
			Args: func(runID string) []any { return []any{runID, runID} },
		},
	}
}

// insertXmlaHeadersSQL parses header rows straight out of the raw table. The
// envelope matcher runs with the 's' flag since PARSE_XML needs the whole
// document even if the appender ever folds it across physical lines.
const insertXmlaHeadersSQL = `INSERT INTO GATLING_XMLA_HEADERS (
    RUN_KEY, TS, LEVEL, LOGGER, MESSAGE_KIND, GATLING_RUN_ID, STATUS,
    GATLING_SESSION_ID, MODEL, CUBE, CATALOG, QUERY_NAME, QUERY_HASH,
    START_MS, END_MS, DURATION_MS, RESPONSE_SIZE, RAW_SOAP
)
WITH ParsedData AS (
    SELECT
        to_timestamp_ntz(regexp_substr(raw_soap, '^[0-9]{4}-[0-9]{2}-[0-9]{2} [0-9]{2}:[0-9]{2}:[0-9]{2}')) AS TS,
        regexp_substr(raw_soap, '^[^ ]+ [^ ]+ ([A-Z]+)', 1, 1, 'e', 1) AS LEVEL,
        regexp_replace(regexp_substr(raw_soap, ' [A-Za-z][A-Za-z0-9_\\.]*:', 1, 1), '[: ]', '') AS LOGGER,
        regexp_substr(raw_soap, '- ([A-Za-z0-9_]+)', 1, 1, 'e', 1) AS MESSAGE_KIND,
        regexp_substr(raw_soap, 'gatlingRunId=''([^'']*)''', 1, 1, 'e', 1) AS GATLING_RUN_ID,
        regexp_substr(raw_soap, 'status=''([^'']*)''', 1, 1, 'e', 1) AS STATUS,
        try_to_number(regexp_substr(raw_soap, 'gatlingSessionId=([0-9]+)', 1, 1, 'e', 1)) AS GATLING_SESSION_ID,
        regexp_substr(raw_soap, 'model=''([^'']*)''', 1, 1, 'e', 1) AS MODEL,
        regexp_substr(raw_soap, 'cube=''([^'']*)''', 1, 1, 'e', 1) AS CUBE,
        regexp_substr(raw_soap, 'catalog=''([^'']*)''', 1, 1, 'e', 1) AS CATALOG,
        regexp_substr(raw_soap, 'queryName=''([^'']*)''', 1, 1, 'e', 1) AS QUERY_NAME,
        regexp_substr(raw_soap, 'inboundTextAsHash=''([^'']*)''', 1, 1, 'e', 1) AS QUERY_HASH,
        try_to_number(regexp_substr(raw_soap, 'start=([0-9]+)', 1, 1, 'e', 1)) AS START_MS,
        try_to_number(regexp_substr(raw_soap, 'end=([0-9]+)', 1, 1, 'e', 1)) AS END_MS,
        try_to_number(regexp_substr(raw_soap, 'duration=([0-9]+)', 1, 1, 'e', 1)) AS DURATION_MS,
        try_to_number(regexp_substr(raw_soap, 'responseSize=([0-9]+)', 1, 1, 'e', 1)) AS RESPONSE_SIZE,
        regexp_substr(raw_soap, '<soap:Envelope.*</soap:Envelope>', 1, 1, 's') AS RAW_SOAP
    FROM
        GATLING_RAW_XMLA_LOGS AS UPLOAD
    WHERE
        UPLOAD.RAW_SOAP LIKE ?
        AND NOT EXISTS (
            SELECT gatling_run_id FROM gatling_xmla_headers
            WHERE gatling_run_id = ?
            LIMIT 1
        )
)
SELECT
    ` + runKeySQL + ` AS RUN_KEY,
    TS,
    LEVEL,
    LOGGER,
    MESSAGE_KIND,
    TRIM(GATLING_RUN_ID) AS GATLING_RUN_ID,
    STATUS,
    GATLING_SESSION_ID,
    MODEL,
    CUBE,
    CATALOG,
    QUERY_NAME,
    QUERY_HASH,
    START_MS,
    END_MS,
    DURATION_MS,
    RESPONSE_SIZE,
    RAW_SOAP
FROM
    ParsedData
ORDER BY
    MODEL, CUBE, CATALOG, QUERY_NAME`

// insertXmlaResponsesSQL derives the response layer from headers. Volatile
// LastDataUpdate timestamps inside the body are pinned to zero before hashing
// so two runs over identical data produce identical SOAP_BODY_HASH values.
const insertXmlaResponsesSQL = `INSERT INTO GATLING_XMLA_RESPONSES (
    RUN_KEY, GATLING_RUN_ID, STATUS, GATLING_SESSION_ID,
    MODEL, CUBE, CATALOG, QUERY_NAME, QUERY_HASH,
    SOAP_HEADER, SOAP_BODY, SOAP_BODY_HASH
)
WITH ModifiedSoap AS (
    SELECT
        *,
        REGEXP_REPLACE(
          XMLGET(PARSE_XML(RAW_SOAP), 'soap:Body')::VARCHAR,
          '<LastDataUpdate.*?>[^<]*</LastDataUpdate>',
          '<LastDataUpdate>0</LastDataUpdate>'
        ) AS MODIFIED_SOAP_BODY_STR
    FROM
        GATLING_XMLA_HEADERS
    WHERE
        GATLING_RUN_ID = ?
        AND NOT EXISTS (
            SELECT gatling_run_id FROM gatling_xmla_responses
            WHERE gatling_run_id = ?
            LIMIT 1
        )
)
SELECT
    RUN_KEY,
    GATLING_RUN_ID,
    STATUS,
    GATLING_SESSION_ID,
    MODEL,
    CUBE,
    CATALOG,
    QUERY_NAME,
    QUERY_HASH,
    XMLGET(PARSE_XML(RAW_SOAP), 'soap:Header') AS SOAP_HEADER,
    MODIFIED_SOAP_BODY_STR::VARIANT AS SOAP_BODY,
    SHA2(MODIFIED_SOAP_BODY_STR, 256) AS SOAP_BODY_HASH
FROM
    ModifiedSoap`
