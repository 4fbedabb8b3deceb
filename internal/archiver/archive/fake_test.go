package archive

import (
	"context"
	"strings"
	"sync"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/warehouse"
)

// fakeCall is one statement the fake client saw, in execution order.
type fakeCall struct {
	sql  string
	args []any
	inTx bool
}

// fakeClient records every statement and lets tests inject faults per
// statement. rowsFor lets a test shape affected-row counts; execHook runs
// before each statement and may return an error to fail it.
type fakeClient struct {
	mu        sync.Mutex
	calls     []fakeCall
	beginErr  error
	commitErr error
	txs       []*fakeTx

	execHook func(sql string, args []any) error
	rowsFor  func(sql string, args []any) int64
}

func (c *fakeClient) record(sql string, args []any, inTx bool) (int64, error) {
	c.mu.Lock()
	c.calls = append(c.calls, fakeCall{sql: sql, args: args, inTx: inTx})
	c.mu.Unlock()
	if c.execHook != nil {
		if err := c.execHook(sql, args); err != nil {
			return 0, err
		}
	}
	if c.rowsFor != nil {
		return c.rowsFor(sql, args), nil
	}
	return 1, nil
}

func (c *fakeClient) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	return c.record(sql, args, false)
}

func (c *fakeClient) Begin(context.Context) (warehouse.Tx, error) {
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	tx := &fakeTx{c: c, commitErr: c.commitErr}
	c.mu.Lock()
	c.txs = append(c.txs, tx)
	c.mu.Unlock()
	return tx, nil
}

func (c *fakeClient) Close() error { return nil }

// sqls returns the recorded statements, optionally filtered by substring.
func (c *fakeClient) sqls(contains string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, call := range c.calls {
		if contains == "" || strings.Contains(call.sql, contains) {
			out = append(out, call.sql)
		}
	}
	return out
}

func (c *fakeClient) callsContaining(contains string) []fakeCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []fakeCall
	for _, call := range c.calls {
		if strings.Contains(call.sql, contains) {
			out = append(out, call)
		}
	}
	return out
}

type fakeTx struct {
	c          *fakeClient
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	return t.c.record(sql, args, true)
}

func (t *fakeTx) Commit() error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

// failOn returns an execHook failing the first statement that contains the
// given fragment.
func failOn(fragment string, err error) func(string, []any) error {
	return func(sql string, _ []any) error {
		if strings.Contains(sql, fragment) {
			return err
		}
		return nil
	}
}
