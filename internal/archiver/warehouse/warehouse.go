// Package warehouse provides the minimal transactional surface the archive
// pipeline needs from Snowflake. The pipeline only ever executes statements
// (DDL, PUT, COPY, DELETE, INSERT, REMOVE) and never reads result sets, so
// the interface is exec-only and easy to fake in tests.
package warehouse

import "context"

// Client is a live warehouse connection. Exec runs a single auto-committed
// statement; Begin opens the explicit transaction that wraps one file's
// delete/copy/insert steps.
type Client interface {
	// Exec runs one statement outside any explicit transaction and returns
	// the affected row count (zero for statements that do not report one,
	// such as PUT and REMOVE).
	Exec(ctx context.Context, query string, args ...any) (int64, error)

	// Begin opens an explicit transaction. Callers must finish it with
	// Commit or Rollback before issuing further Exec calls.
	Begin(ctx context.Context) (Tx, error)

	Close() error
}

// Tx is one open warehouse transaction.
type Tx interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Commit() error
	Rollback() error
}
