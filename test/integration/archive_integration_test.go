package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/archive"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/runlog"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/warehouse"
	"github.com/rwidjaja/atscale-gatling/internal/loggen"
)

// These tests run a whole archive pass in process: loggen writes real
// scenario logs, the locator discovers them and the runner pushes them
// through the load pipeline against an in-memory warehouse that records
// every statement.

// TestArchiveIntegration_JdbcPass tests a clean two-file JDBC archive pass
// end to end, including the exact statement sequence per file.
func TestArchiveIntegration_JdbcPass(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	logDir := t.TempDir()
	generateLogs(t, genConfigYAML("archive smoke", logDir, 2, 3, 0, "[jdbc]", "[open, closed]"))
	runID := "archive smoke|2 users|5 minutes"

	disc, err := runlog.Locator{Dir: logDir}.FindJdbc([]string{genModel})
	require.NoError(t, err)
	require.Len(t, disc.Files, 2, "One file per workload")
	assert.Empty(t, disc.Extras, "Generated names should all be exact matches")

	driver, err := archive.NewDriver("jdbc")
	require.NoError(t, err)

	wh := &memWarehouse{}
	runner := &archive.Runner{Client: wh, Driver: driver}

	stats, err := runner.Run(context.Background(), disc.Files)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Attempted)
	assert.Equal(t, 2, stats.Loaded)
	assert.Zero(t, stats.Skipped)
	assert.Zero(t, stats.Failed)

	// Provisioning runs once, up front, outside any transaction.
	ddl := driver.DDL()
	require.Greater(t, len(wh.stmts), len(ddl))
	for i, want := range ddl {
		assert.Equal(t, want, wh.stmts[i].SQL, "DDL statement %d", i)
		assert.False(t, wh.stmts[i].InTx)
	}

	// Each file walks upload, delete, copy, the three insert steps and the
	// stage cleanup, in that order.
	perFile := []string{
		"PUT 'file://",
		"DELETE FROM GATLING_RAW_SQL_LOGS",
		"COPY INTO GATLING_RAW_SQL_LOGS",
		"INSERT INTO GATLING_SQL_LOGS",
		"INSERT INTO GATLING_SQL_HEADERS",
		"INSERT INTO GATLING_SQL_DETAILS",
		"REMOVE @GATLING_LOGS_STAGE/",
	}
	require.Len(t, wh.stmts, len(ddl)+2*len(perFile))
	for fileIdx := 0; fileIdx < 2; fileIdx++ {
		base := len(ddl) + fileIdx*len(perFile)
		for i, fragment := range perFile {
			assert.Contains(t, wh.stmts[base+i].SQL, fragment, "file %d step %d", fileIdx, i)
		}
	}

	// Deletes key on the run id stamped into the generated lines, always as
	// a bind parameter.
	deletes := wh.statements("DELETE FROM GATLING_RAW_SQL_LOGS")
	require.Len(t, deletes, 2)
	for _, del := range deletes {
		require.Len(t, del.Args, 1)
		assert.Equal(t, archive.LikePattern(runID), del.Args[0])
		assert.True(t, del.InTx)
	}

	require.Len(t, wh.txs, 2, "One transaction per file")
	for _, tx := range wh.txs {
		assert.True(t, tx.committed)
		assert.False(t, tx.rolledBack)
	}

	require.Len(t, stats.Results, 2)
	for _, res := range stats.Results {
		assert.Equal(t, []string{runID}, res.RunIDs)
		assert.Equal(t, archive.StagedName(res.File), res.StagedAs)
		assert.Equal(t, archive.StateCommitted, res.State)
	}

	t.Logf("JDBC archive pass: %d statements over %d files", len(wh.stmts), stats.Loaded)
}

// TestArchiveIntegration_XmlaPass tests the XMLA driver's statement
// sequence over a generated cube log.
func TestArchiveIntegration_XmlaPass(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	logDir := t.TempDir()
	generateLogs(t, genConfigYAML("xmla archive", logDir, 2, 2, 0, "[xmla]", "[open]"))

	disc, err := runlog.Locator{Dir: logDir}.FindXmla([]string{genCube})
	require.NoError(t, err)
	require.Len(t, disc.Files, 1)

	driver, err := archive.NewDriver("xmla")
	require.NoError(t, err)

	wh := &memWarehouse{}
	runner := &archive.Runner{Client: wh, Driver: driver}

	stats, err := runner.Run(context.Background(), disc.Files)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Loaded)

	perFile := []string{
		"PUT 'file://",
		"DELETE FROM GATLING_RAW_XMLA_LOGS",
		"COPY INTO GATLING_RAW_XMLA_LOGS",
		"INSERT INTO GATLING_XMLA_HEADERS",
		"INSERT INTO GATLING_XMLA_RESPONSES",
		"REMOVE @XMLA_LOGS_STAGE/",
	}
	require.Len(t, wh.stmts, len(driver.DDL())+len(perFile))
	base := len(driver.DDL())
	for i, fragment := range perFile {
		assert.Contains(t, wh.stmts[base+i].SQL, fragment, "step %d", i)
	}

	deletes := wh.statements("DELETE FROM GATLING_RAW_XMLA_LOGS")
	require.Len(t, deletes, 1)
	assert.Equal(t, archive.LikePattern("xmla archive|2 users|5 minutes"), deletes[0].Args[0])
}

// TestArchiveIntegration_RollbackOnCopyFailure tests that a failing COPY
// rolls the file's transaction back, cleans up the staged object and fails
// the pass when nothing else loaded.
func TestArchiveIntegration_RollbackOnCopyFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	logDir := t.TempDir()
	generateLogs(t, genConfigYAML("rollback run", logDir, 1, 2, 0, "[jdbc]", "[open]"))

	disc, err := runlog.Locator{Dir: logDir}.FindJdbc([]string{genModel})
	require.NoError(t, err)
	require.Len(t, disc.Files, 1)

	driver, err := archive.NewDriver("jdbc")
	require.NoError(t, err)

	wh := &memWarehouse{
		failWhen: "COPY INTO",
		failErr:  errors.New("staged object vanished"),
	}
	runner := &archive.Runner{Client: wh, Driver: driver}

	stats, err := runner.Run(context.Background(), disc.Files)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none loaded")

	assert.Equal(t, 1, stats.Attempted)
	assert.Zero(t, stats.Loaded)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Failures, 1)
	assert.Equal(t, disc.Files[0], stats.Failures[0].File)
	assert.Contains(t, stats.Failures[0].Err.Error(), "copy")

	require.Len(t, wh.txs, 1)
	assert.True(t, wh.txs[0].rolledBack)
	assert.False(t, wh.txs[0].committed)

	// Nothing past the failed copy runs, but the staged object still gets
	// cleaned up.
	assert.Empty(t, wh.statements("INSERT INTO"))
	assert.Len(t, wh.statements("REMOVE @GATLING_LOGS_STAGE/"), 1)
}

// TestArchiveIntegration_SkipsFileWithoutRunIDs tests that a discovered
// file carrying no run ids is skipped before any warehouse work, while the
// rest of the pass continues.
func TestArchiveIntegration_SkipsFileWithoutRunIDs(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	logDir := t.TempDir()
	generateLogs(t, genConfigYAML("skip run", logDir, 1, 2, 0, "[jdbc]", "[open]"))

	// A stray protocol-tagged log with no gatlingRunId tokens anywhere.
	stray := filepath.Join(logDir, "scratch_jdbc_open.log")
	strayContent := "Simulation started\n2025-01-15 10:00:00 INFO JdbcLogger: - jdbcLog status='SUCCEEDED'\n"
	require.NoError(t, os.WriteFile(stray, []byte(strayContent), 0o644))

	disc, err := runlog.Locator{Dir: logDir}.FindJdbc([]string{genModel})
	require.NoError(t, err)
	require.Len(t, disc.Files, 2)
	assert.Equal(t, []string{stray}, disc.Extras, "Stray file should only match the broad scan")

	driver, err := archive.NewDriver("jdbc")
	require.NoError(t, err)

	wh := &memWarehouse{}
	runner := &archive.Runner{Client: wh, Driver: driver}

	stats, err := runner.Run(context.Background(), disc.Files)
	require.NoError(t, err, "A skipped file is not a failure")

	assert.Equal(t, 2, stats.Attempted)
	assert.Equal(t, 1, stats.Loaded)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, stats.Failed)

	assert.Len(t, wh.statements("PUT 'file://"), 1, "The skipped file must never reach the stage")
}

// generateLogs writes a loggen config and runs the generator in process.
func generateLogs(t *testing.T, yamlConfig string) {
	t.Helper()
	configPath := writeGenConfig(t, t.TempDir(), yamlConfig)
	loggen.Generate(&configPath)
}

// memStmt is one statement the in-memory warehouse saw, in execution order.
type memStmt struct {
	SQL  string
	Args []any
	InTx bool
}

// memWarehouse implements warehouse.Client by recording statements. failWhen
// fails the first statement containing that fragment with failErr.
type memWarehouse struct {
	mu       sync.Mutex
	stmts    []memStmt
	txs      []*memTx
	failWhen string
	failErr  error
}

func (m *memWarehouse) record(sql string, args []any, inTx bool) (int64, error) {
	m.mu.Lock()
	m.stmts = append(m.stmts, memStmt{SQL: sql, Args: args, InTx: inTx})
	m.mu.Unlock()
	if m.failWhen != "" && strings.Contains(sql, m.failWhen) {
		return 0, m.failErr
	}
	return 1, nil
}

func (m *memWarehouse) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	return m.record(sql, args, false)
}

func (m *memWarehouse) Begin(context.Context) (warehouse.Tx, error) {
	tx := &memTx{wh: m}
	m.mu.Lock()
	m.txs = append(m.txs, tx)
	m.mu.Unlock()
	return tx, nil
}

func (m *memWarehouse) Close() error { return nil }

// statements returns recorded statements containing the fragment.
func (m *memWarehouse) statements(fragment string) []memStmt {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []memStmt
	for _, stmt := range m.stmts {
		if strings.Contains(stmt.SQL, fragment) {
			out = append(out, stmt)
		}
	}
	return out
}

type memTx struct {
	wh         *memWarehouse
	committed  bool
	rolledBack bool
}

func (t *memTx) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	return t.wh.record(sql, args, true)
}

func (t *memTx) Commit() error {
	t.committed = true
	return nil
}

func (t *memTx) Rollback() error {
	t.rolledBack = true
	return nil
}
