// Package extract pulls recent query history out of the AtScale Postgres
// repository and writes it as CSV ingest files that the load generators feed
// from. One run produces up to two files per model, one per protocol.
package extract

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/config"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/logger"
)

// Query-language subjects as stored in atscale.queries.query_language.
// JDBC traffic lands as "pgsql", XMLA traffic as "analysis".
const (
	SubjectJDBC = "pgsql"
	SubjectXMLA = "analysis"
)

// defaultHistorySQL selects the distinct inbound query texts a cube saw in
// the last 60 days, restricted to successful interactive queries of one
// language. $1 binds the language subject, $2 the cube name. The LENGTH and
// NOT LIKE guards drop AtScale's own bookkeeping queries.
const defaultHistorySQL = `SELECT
    q.query_text AS query_text,
    COUNT(*)     AS num_times
FROM
    atscale.queries q
INNER JOIN
    atscale.query_results r ON q.query_id = r.query_id
INNER JOIN
    atscale.queries_planned p ON q.query_id = p.query_id
WHERE
    q.query_language = $1
    AND p.planning_started > CURRENT_TIMESTAMP - INTERVAL '60 day'
    AND p.cube_name = $2
    AND q.service = 'user-query'
    AND r.succeeded = TRUE
    AND LENGTH(q.query_text) > 100
    AND q.query_text NOT LIKE '/* Virtual query to get the members of a level */%'
    AND q.query_text NOT LIKE '-- statement does not return rows%'
GROUP BY 1
ORDER BY 1`

// Options configures one extraction run.
type Options struct {
	// IngestDir receives the CSV files, created if missing.
	IngestDir string

	// QueryFile optionally overrides the embedded history SQL. The file must
	// keep the $1 (language subject) and $2 (cube name) placeholders.
	QueryFile string
}

// Result describes one written ingest file.
type Result struct {
	Model   string
	Subject string
	File    string
	Queries int
}

// Extractor holds the repository connection and the history SQL in use.
type Extractor struct {
	db       *sql.DB
	querySQL string
}

// Open connects to the AtScale repository and verifies the connection.
// The history SQL defaults to the embedded statement; pass a QueryFile in
// Options to Run to override it.
func Open(ctx context.Context, cfg config.Postgres) (*Extractor, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping repository: %w", err)
	}

	return &Extractor{db: db, querySQL: defaultHistorySQL}, nil
}

func (e *Extractor) Close() error {
	return e.db.Close()
}

// historyQuery is one extracted query with its execution count.
type historyQuery struct {
	Text  string
	Times int64
}

// fetch runs the history SQL for one (subject, cube) pair.
func (e *Extractor) fetch(ctx context.Context, subject, cube string) ([]historyQuery, error) {
	rows, err := e.db.QueryContext(ctx, e.querySQL, subject, cube)
	if err != nil {
		return nil, fmt.Errorf("query history for %s/%s: %w", subject, cube, err)
	}
	defer rows.Close()

	var queries []historyQuery
	for rows.Next() {
		var q historyQuery
		if err := rows.Scan(&q.Text, &q.Times); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return queries, nil
}

// ExtractModel writes the model's JDBC and XMLA ingest files into dir.
// A subject with no history is logged and skipped rather than producing an
// empty file, since a header-only CSV starves the feeder downstream.
func (e *Extractor) ExtractModel(ctx context.Context, m config.Model, dir string) ([]Result, error) {
	log := logger.L()

	cube := m.Cube
	if cube == "" {
		cube = m.Name
	}

	subjects := []struct {
		subject string
		suffix  string
	}{
		{SubjectJDBC, "jdbc"},
		{SubjectXMLA, "xmla"},
	}

	var results []Result
	for _, s := range subjects {
		queries, err := e.fetch(ctx, s.subject, cube)
		if err != nil {
			return results, err
		}
		if len(queries) == 0 {
			log.Warnw("no query history",
				"model", m.Name,
				"cube", cube,
				"subject", s.subject)
			continue
		}

		file := filepath.Join(dir, fmt.Sprintf("%s_%s_queries.csv", m.Key, s.suffix))
		if err := writeCSV(file, queries); err != nil {
			return results, err
		}

		log.Infow("wrote ingest file",
			"model", m.Name,
			"subject", s.subject,
			"file", file,
			"queries", len(queries))
		results = append(results, Result{
			Model:   m.Name,
			Subject: s.subject,
			File:    file,
			Queries: len(queries),
		})
	}
	return results, nil
}

// writeCSV writes queries as a query_name,query_text CSV. Names are
// positional (query_0001, query_0002, ...) and stable across runs because
// the history SQL orders by query text.
func writeCSV(path string, queries []historyQuery) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ingest file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"query_name", "query_text"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, q := range queries {
		if err := w.Write([]string{queryName(i), q.Text}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func queryName(i int) string {
	return fmt.Sprintf("query_%04d", i+1)
}

// Run extracts ingest files for every configured model. Models fail
// independently; the run errors only when every model failed.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	log := logger.L()

	if err := cfg.RequirePostgres(); err != nil {
		return err
	}

	ex, err := Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer ex.Close()

	if opts.QueryFile != "" {
		data, err := os.ReadFile(opts.QueryFile)
		if err != nil {
			return fmt.Errorf("read query file: %w", err)
		}
		ex.querySQL = string(data)
		log.Infow("using query override", "file", opts.QueryFile)
	}

	if err := os.MkdirAll(opts.IngestDir, 0o755); err != nil {
		return fmt.Errorf("create ingest dir: %w", err)
	}

	succeeded, failed := 0, 0
	for _, m := range cfg.Models {
		results, err := ex.ExtractModel(ctx, m, opts.IngestDir)
		if err != nil {
			failed++
			log.Errorw("model extraction failed", "model", m.Name, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		succeeded++
		total := 0
		for _, r := range results {
			total += r.Queries
		}
		log.Infow("model extracted", "model", m.Name, "files", len(results), "queries", total)
	}

	log.Infow("extraction complete", "succeeded", succeeded, "failed", failed)
	if len(cfg.Models) > 0 && succeeded == 0 {
		return fmt.Errorf("extraction failed for all %d models", len(cfg.Models))
	}
	return nil
}
