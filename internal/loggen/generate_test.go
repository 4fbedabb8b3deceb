package loggen

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/parsers"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/runlog"
)

func testConfig(dir string) GenConfig {
	cfg := GenConfig{
		TestName:  "internet sales smoke",
		RunTime:   "10 minutes",
		OutputDir: dir,
		Seed:      42,
		Users:     2,
		Queries:   3,
		ErrorRate: 0,
		MaxRows:   4,
		Workers:   1,
		Models: []ModelGen{{
			Name:          "Internet Sales",
			Cube:          "Internet Sales Cube",
			Catalog:       "Sales",
			Protocols:     []string{"jdbc", "xmla"},
			Workloads:     []string{"open"},
			ResultSetRows: true,
			ResponseBody:  true,
		}},
	}
	normalize(&cfg)
	return cfg
}

// parseFile runs every line of a generated file through the given parser.
func parseFile(t *testing.T, path, protocol string) []*parsers.Event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	p, err := parsers.NewFactory().NewParser(protocol, parsers.ParserOptions{})
	require.NoError(t, err)

	var events []*parsers.Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		ev, err := p.ParseLine(context.Background(), sc.Text())
		if errors.Is(err, parsers.ErrSkipLine) {
			continue
		}
		require.NoError(t, err, "line: %s", sc.Text())
		events = append(events, ev)
	}
	require.NoError(t, sc.Err())
	return events
}

func TestGeneratedJdbcLogRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	job := fileJob{Model: cfg.Models[0], Protocol: "jdbc", Workload: "open", Name: "Internet_Sales_jdbc_open.log"}

	lines, err := writeScenarioLog(cfg, cfg.RunID(), job)
	require.NoError(t, err)

	events := parseFile(t, filepath.Join(dir, job.Name), "jdbc")
	require.Len(t, events, lines, "every generated line must parse")

	headers, details := 0, 0
	headerKeys := map[string]bool{}
	var detailRows int64
	for _, ev := range events {
		assert.Equal(t, "internet sales smoke|2 users|10 minutes", ev.RunID)
		assert.Equal(t, "jdbc", ev.Protocol)
		require.NotNil(t, ev.Model)
		assert.Equal(t, "Internet Sales", *ev.Model)
		switch ev.Kind {
		case parsers.KindHeader:
			headers++
			headerKeys[ev.RunKey] = true
			require.NotNil(t, ev.Status)
			assert.Equal(t, "SUCCEEDED", *ev.Status)
			require.NotNil(t, ev.RowsReturned)
			detailRows += *ev.RowsReturned
			require.NotNil(t, ev.StartMs)
			require.NotNil(t, ev.EndMs)
			require.NotNil(t, ev.DurationMs)
			assert.Equal(t, *ev.DurationMs, *ev.EndMs-*ev.StartMs)
		case parsers.KindDetail:
			details++
			require.NotNil(t, ev.RowNumber)
			require.NotNil(t, ev.RowMap)
			require.NotNil(t, ev.RowHash)
		}
	}
	assert.Equal(t, cfg.Users*cfg.Queries, headers)
	assert.Equal(t, detailRows, int64(details), "one detail line per reported row")

	// detail lines join their header through the shared run key
	for _, ev := range events {
		if ev.Kind == parsers.KindDetail {
			assert.True(t, headerKeys[ev.RunKey], "detail run key %s has no header", ev.RunKey)
		}
	}
}

func TestGeneratedXmlaLogRoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	job := fileJob{Model: cfg.Models[0], Protocol: "xmla", Workload: "open", Name: "Internet_Sales_Cube_xmla_open.log"}

	lines, err := writeScenarioLog(cfg, cfg.RunID(), job)
	require.NoError(t, err)
	require.Equal(t, cfg.Users*cfg.Queries, lines)

	events := parseFile(t, filepath.Join(dir, job.Name), "xmla")
	require.Len(t, events, lines)

	for _, ev := range events {
		assert.Equal(t, parsers.KindHeader, ev.Kind)
		require.NotNil(t, ev.Cube)
		assert.Equal(t, "Internet Sales Cube", *ev.Cube)
		require.NotNil(t, ev.Catalog)
		assert.Equal(t, "Sales", *ev.Catalog)
		require.NotNil(t, ev.ResponseSize)
		require.NotNil(t, ev.SoapEnvelope)
		assert.Equal(t, *ev.ResponseSize, int64(len(*ev.SoapEnvelope)))
		require.NotNil(t, ev.SoapBodyHash)
		assert.Len(t, *ev.SoapBodyHash, 64)
	}
}

func TestSameSeedIsByteIdentical(t *testing.T) {
	dirA, dirB, dirC := t.TempDir(), t.TempDir(), t.TempDir()
	job := func(cfg GenConfig) fileJob {
		return fileJob{Model: cfg.Models[0], Protocol: "jdbc", Workload: "open", Name: "Internet_Sales_jdbc_open.log"}
	}

	cfgA := testConfig(dirA)
	_, err := writeScenarioLog(cfgA, cfgA.RunID(), job(cfgA))
	require.NoError(t, err)

	cfgB := testConfig(dirB)
	_, err = writeScenarioLog(cfgB, cfgB.RunID(), job(cfgB))
	require.NoError(t, err)

	cfgC := testConfig(dirC)
	cfgC.Seed = 43
	_, err = writeScenarioLog(cfgC, cfgC.RunID(), job(cfgC))
	require.NoError(t, err)

	a, err := os.ReadFile(filepath.Join(dirA, "Internet_Sales_jdbc_open.log"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dirB, "Internet_Sales_jdbc_open.log"))
	require.NoError(t, err)
	c, err := os.ReadFile(filepath.Join(dirC, "Internet_Sales_jdbc_open.log"))
	require.NoError(t, err)

	assert.Equal(t, a, b, "same seed must reproduce the same file")
	assert.NotEqual(t, a, c, "a different seed must move the content")
}

func TestErrorRateOneFailsEverything(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.ErrorRate = 1

	jdbcJob := fileJob{Model: cfg.Models[0], Protocol: "jdbc", Workload: "open", Name: "Internet_Sales_jdbc_open.log"}
	lines, err := writeScenarioLog(cfg, cfg.RunID(), jdbcJob)
	require.NoError(t, err)
	assert.Equal(t, cfg.Users*cfg.Queries, lines, "failed requests log no detail rows")

	for _, ev := range parseFile(t, filepath.Join(dir, jdbcJob.Name), "jdbc") {
		assert.Equal(t, parsers.KindHeader, ev.Kind)
		require.NotNil(t, ev.Status)
		assert.Equal(t, "FAILED", *ev.Status)
		assert.Nil(t, ev.RowsReturned)
	}

	xmlaJob := fileJob{Model: cfg.Models[0], Protocol: "xmla", Workload: "open", Name: "Internet_Sales_Cube_xmla_open.log"}
	_, err = writeScenarioLog(cfg, cfg.RunID(), xmlaJob)
	require.NoError(t, err)
	for _, ev := range parseFile(t, filepath.Join(dir, xmlaJob.Name), "xmla") {
		assert.Nil(t, ev.ResponseSize)
		assert.Nil(t, ev.SoapEnvelope)
	}
}

func TestBuildJobsFileNames(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Models[0].Workloads = []string{"open", "concurrent_closed"}

	jobs := buildJobs(cfg)
	var names []string
	for _, j := range jobs {
		names = append(names, j.Name)
	}
	assert.ElementsMatch(t, []string{
		"Internet_Sales_jdbc_open.log",
		"Internet_Sales_jdbc_concurrent_closed.log",
		"Internet_Sales_Cube_xmla_open.log",
		"Internet_Sales_Cube_xmla_concurrent_closed.log",
	}, names)
}

func TestLocatorDiscoversGeneratedFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	for _, job := range buildJobs(cfg) {
		_, err := writeScenarioLog(cfg, cfg.RunID(), job)
		require.NoError(t, err)
	}

	loc := runlog.Locator{Dir: dir}
	jdbc, err := loc.FindJdbc([]string{"Internet Sales"})
	require.NoError(t, err)
	assert.Len(t, jdbc.Files, 1)
	assert.Empty(t, jdbc.Extras, "generated jdbc names must hit the exact pass")

	xmla, err := loc.FindXmla([]string{"Internet Sales Cube"})
	require.NoError(t, err)
	assert.Len(t, xmla.Files, 1)
	assert.Empty(t, xmla.Extras, "generated xmla names must hit the exact pass")
}

func TestSampleConfigParses(t *testing.T) {
	var cfg GenConfig
	require.NoError(t, yaml.Unmarshal([]byte(SampleConfig), &cfg))
	normalize(&cfg)

	assert.Equal(t, "internet sales smoke", cfg.TestName)
	assert.Equal(t, "internet sales smoke|10 users|10 minutes", cfg.RunID())
	require.Len(t, cfg.Models, 1)
	assert.Equal(t, []string{"jdbc", "xmla"}, cfg.Models[0].Protocols)
	assert.True(t, cfg.Models[0].ResultSetRows)
}

func TestNormalizeDefaultsAndQuotes(t *testing.T) {
	cfg := GenConfig{
		TestName: "smoke's run",
		Models:   []ModelGen{{Name: "Internet 'Sales'"}},
	}
	normalize(&cfg)

	assert.Equal(t, "smokes run", cfg.TestName)
	assert.Equal(t, "Internet Sales", cfg.Models[0].Name)
	assert.Equal(t, "smokes run|10 users|10 minutes", cfg.RunID())
	assert.Equal(t, []string{"jdbc", "xmla"}, cfg.Models[0].Protocols)
	assert.Equal(t, []string{"open"}, cfg.Models[0].Workloads)
	assert.Equal(t, 4, cfg.Workers)
}
