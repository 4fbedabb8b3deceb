// Package archive moves Gatling log files into Snowflake. Each protocol
// (jdbc, xmla) contributes a Driver holding its schema objects and per-file
// statements; the Loader runs one file through stage/delete/copy/insert
// inside a single transaction, and the Runner sequences a whole pass.
package archive

import (
	"fmt"
	"strings"
)

// InsertStep is one transform-and-insert statement the loader executes per
// run id inside the file transaction. Every step's SQL carries a NOT EXISTS
// guard, so re-running a run id inserts nothing.
type InsertStep struct {
	Name string
	SQL  string
	// Args maps a run id to the statement's bind values.
	Args func(runID string) []any
}

// Driver fixes one protocol's warehouse surface. Implementations carry no
// state; all statements are safe to re-run.
type Driver interface {
	// Protocol tags log output, metrics and file discovery ("jdbc", "xmla").
	Protocol() string

	// Stage names the internal stage files are uploaded into.
	Stage() string

	// DDL returns the ordered IF NOT EXISTS statements for the protocol's
	// stage, file format, tables and views.
	DDL() []string

	// DeleteRawSQL returns the delete-before-reload statement. One bind arg:
	// the LIKE pattern from LikePattern.
	DeleteRawSQL() string

	// CopySQL returns the bulk-load statement for one staged file.
	CopySQL(stagedFile string) string

	// InsertSteps returns the ordered transform-and-insert statements for
	// one staged file.
	InsertSteps(stagedFile string) []InsertStep
}

// NewDriver returns the Driver for the given protocol ("jdbc" or "xmla").
func NewDriver(protocol string) (Driver, error) {
	switch protocol {
	case "jdbc", "sql":
		return jdbcDriver{}, nil
	case "xmla", "soap":
		return xmlaDriver{}, nil
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", protocol)
	}
}

// LikePattern builds the raw-layer predicate matching every line of one run.
// The pattern is always passed as a bind parameter, never interpolated.
func LikePattern(runID string) string {
	return "%gatlingRunId='" + runID + "'%"
}

// sqlEscape doubles single quotes for the few places a file name must be
// interpolated into statement text (FILES clauses take no bind parameters).
func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// runKeySQL is the warehouse side of parsers.RunKey: SHA-256 over the
// pipe-joined run id, session id, model and query hash, with absent fields
// as empty strings. The Go and SQL digests must agree byte for byte.
const runKeySQL = `SHA2(COALESCE(GATLING_RUN_ID, '') || '|' || COALESCE(TO_VARCHAR(GATLING_SESSION_ID), '') || '|' || COALESCE(MODEL, '') || '|' || COALESCE(QUERY_HASH, ''), 256)`
