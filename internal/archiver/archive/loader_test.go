package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRunID = "jdbc perf test|10 users|2025-08-14 10:30:22"

func writeLogFile(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func jdbcHeaderLine(runID string) string {
	return "2025-08-14 10:30:22 INFO c.a.g.JdbcQueryLogger: - jdbcLog gatlingRunId='" + runID +
		"' status='SUCCEEDED' gatlingSessionId=3 model='Sales' queryName='q42'" +
		" inboundTextAsHash='9f2c3a' start=1755167422000 end=1755167422350 duration=350 rows=120"
}

func newTestLoader(client *fakeClient) *Loader {
	d := jdbcDriver{}
	return NewLoader(client, NewStager(client, d.Stage()), d)
}

func TestLoader_LoadFileSuccess(t *testing.T) {
	path := writeLogFile(t, "Sales_jdbc_open.log", jdbcHeaderLine(sampleRunID))
	client := &fakeClient{}
	loader := newTestLoader(client)

	res, err := loader.LoadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, StateCommitted, res.State)
	assert.False(t, res.Skipped)
	assert.Equal(t, []string{sampleRunID}, res.RunIDs)
	assert.Equal(t, "Sales_jdbc_open.log.gz", res.StagedAs)

	require.Len(t, client.txs, 1)
	assert.True(t, client.txs[0].committed)
	assert.False(t, client.txs[0].rolledBack)

	// PUT and REMOVE run outside the transaction, everything else inside.
	var kinds []string
	for _, c := range client.calls {
		switch {
		case strings.HasPrefix(c.sql, "PUT "):
			kinds = append(kinds, "put")
			assert.False(t, c.inTx)
			assert.Contains(t, c.sql, "AUTO_COMPRESS=FALSE")
			assert.Contains(t, c.sql, "SOURCE_COMPRESSION=GZIP")
		case strings.HasPrefix(c.sql, "DELETE "):
			kinds = append(kinds, "delete")
			assert.True(t, c.inTx)
			require.Len(t, c.args, 1)
			assert.Equal(t, LikePattern(sampleRunID), c.args[0])
		case strings.HasPrefix(c.sql, "COPY "):
			kinds = append(kinds, "copy")
			assert.True(t, c.inTx)
			assert.Contains(t, c.sql, "FILES = ('Sales_jdbc_open.log.gz')")
		case strings.HasPrefix(c.sql, "INSERT "):
			kinds = append(kinds, "insert")
			assert.True(t, c.inTx)
		case strings.HasPrefix(c.sql, "REMOVE "):
			kinds = append(kinds, "remove")
			assert.False(t, c.inTx)
		}
	}
	assert.Equal(t, []string{"put", "delete", "copy", "insert", "insert", "insert", "remove"}, kinds)

	assert.Equal(t, map[string]int64{"sql_logs": 1, "headers": 1, "details": 1}, res.Inserted)
}

func TestLoader_SkipsFileWithoutRunIDs(t *testing.T) {
	path := writeLogFile(t, "stray_jdbc_debug.log",
		"2025-08-14 10:30:22 DEBUG c.a.g.Startup: - warmup complete")
	client := &fakeClient{}
	loader := newTestLoader(client)

	res, err := loader.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, StateIdle, res.State)
	assert.Empty(t, client.calls, "a skipped file must never touch the warehouse")
}

func TestLoader_CopyFailureRollsBackAndRemoves(t *testing.T) {
	path := writeLogFile(t, "Sales_jdbc_open.log", jdbcHeaderLine(sampleRunID))
	client := &fakeClient{execHook: failOn("COPY INTO", errors.New("load aborted"))}
	loader := newTestLoader(client)

	res, err := loader.LoadFile(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy")

	assert.Equal(t, StateTransactionOpen, res.State)
	require.Len(t, client.txs, 1)
	assert.True(t, client.txs[0].rolledBack)
	assert.False(t, client.txs[0].committed)
	assert.NotEmpty(t, client.sqls("REMOVE @"), "staged object must be removed after rollback")
	assert.Empty(t, client.sqls("INSERT INTO"), "no insert may run after a failed copy")
}

func TestLoader_InsertFailureRollsBack(t *testing.T) {
	path := writeLogFile(t, "Sales_jdbc_open.log", jdbcHeaderLine(sampleRunID))
	client := &fakeClient{execHook: failOn("INSERT INTO GATLING_SQL_HEADERS", errors.New("constraint"))}
	loader := newTestLoader(client)

	res, err := loader.LoadFile(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "headers")

	// The parsed layer had been written inside the transaction before the
	// failure, so the recorded state is past raw_loaded.
	assert.Equal(t, stepState("sql_logs"), res.State)
	require.Len(t, client.txs, 1)
	assert.True(t, client.txs[0].rolledBack)
	assert.NotEmpty(t, client.sqls("REMOVE @"))
}

func TestLoader_BeginFailureRemovesStaged(t *testing.T) {
	path := writeLogFile(t, "Sales_jdbc_open.log", jdbcHeaderLine(sampleRunID))
	client := &fakeClient{beginErr: errors.New("no connection")}
	loader := newTestLoader(client)

	res, err := loader.LoadFile(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, StateStagingUploaded, res.State)
	assert.NotEmpty(t, client.sqls("REMOVE @"), "upload must be compensated when the transaction never opens")
}

func TestLoader_CommitFailureSurfacesError(t *testing.T) {
	path := writeLogFile(t, "Sales_jdbc_open.log", jdbcHeaderLine(sampleRunID))
	client := &fakeClient{commitErr: errors.New("session lost")}
	loader := newTestLoader(client)

	res, err := loader.LoadFile(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit")
	assert.NotEqual(t, StateCommitted, res.State)
	assert.NotEmpty(t, client.sqls("REMOVE @"), "staged object must still be removed")
}

func TestLoader_MultipleRunIDsDeleteEachOne(t *testing.T) {
	first := "run a|10 users|2025-08-14 09:00:00"
	second := "run b|20 users|2025-08-14 11:00:00"
	path := writeLogFile(t, "Sales_jdbc_open.log",
		jdbcHeaderLine(first),
		jdbcHeaderLine(second),
		jdbcHeaderLine(first))
	client := &fakeClient{}
	loader := newTestLoader(client)

	res, err := loader.LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, res.RunIDs, "run ids keep first-seen order, deduplicated")

	deletes := client.callsContaining("DELETE FROM")
	require.Len(t, deletes, 2)
	assert.Equal(t, LikePattern(first), deletes[0].args[0])
	assert.Equal(t, LikePattern(second), deletes[1].args[0])

	// Each insert step runs once per run id.
	assert.Len(t, client.callsContaining("INSERT INTO GATLING_SQL_LOGS"), 2)
	assert.Len(t, client.callsContaining("INSERT INTO GATLING_SQL_HEADERS"), 2)
}
