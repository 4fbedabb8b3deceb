package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/logger"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/runlog"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/warehouse"
)

// State names the loader's position in the per-file pipeline. The staged
// upload is the only non-transactional step, so every failure past
// StateStagingUploaded rolls the warehouse back to exactly StateIdle plus a
// possibly-orphaned stage object, which Remove then clears.
type State string

const (
	StateIdle            State = "idle"
	StateStagingUploaded State = "staging_uploaded"
	StateTransactionOpen State = "transaction_open"
	StateRawLoaded       State = "raw_loaded"
	StateCommitted       State = "committed"
)

// Insert steps report completion as "<step>_inserted" ("headers_inserted",
// "details_inserted", "responses_inserted").
func stepState(name string) State { return State(name + "_inserted") }

// batchSize is the progress-log interval for the per-run-id statement loops.
const defaultBatchSize = 1000

// FileResult summarizes one file's pass through the loader.
type FileResult struct {
	File       string
	StagedAs   string
	RunIDs     []string
	RawDeleted int64
	RawRows    int64
	Inserted   map[string]int64
	State      State
	Skipped    bool
	Elapsed    time.Duration
}

// Loader runs single files through the stage/delete/copy/insert pipeline.
type Loader struct {
	client    warehouse.Client
	stager    *Stager
	driver    Driver
	batchSize int
}

func NewLoader(client warehouse.Client, stager *Stager, d Driver) *Loader {
	return &Loader{client: client, stager: stager, driver: d, batchSize: defaultBatchSize}
}

// LoadFile archives one log file. The sequence is: extract run ids, upload
// the compressed file to the stage, then inside one transaction delete the
// prior raw rows for those run ids, COPY the staged file into the raw table
// and run the driver's guarded insert steps. Everything transactional commits
// or rolls back as a unit; the staged object is removed on both paths.
//
// A file with no run ids is skipped, not failed: its lines could never be
// deleted on a re-run, so loading them would grow the raw table on every
// pass.
func (l *Loader) LoadFile(ctx context.Context, path string) (*FileResult, error) {
	log := logger.L()
	start := time.Now()
	res := &FileResult{File: path, State: StateIdle, Inserted: map[string]int64{}}

	runIDs, err := runlog.ExtractRunIDs(path)
	if err != nil {
		return res, fmt.Errorf("scan run ids in %s: %w", path, err)
	}
	res.RunIDs = runIDs
	if len(runIDs) == 0 {
		res.Skipped = true
		log.Warnw("no gatling run ids found, skipping file", "file", path)
		return res, nil
	}
	log.Infow("extracted run ids from log file", "file", path, "run_ids", len(runIDs))

	staged, err := l.stager.Upload(ctx, path)
	if err != nil {
		return res, err
	}
	res.StagedAs = staged
	res.State = StateStagingUploaded
	log.Infow("uploaded file to stage", "file", path, "stage", l.driver.Stage(), "staged", staged)

	tx, err := l.client.Begin(ctx)
	if err != nil {
		l.removeStaged(ctx, staged)
		return res, fmt.Errorf("begin transaction: %w", err)
	}
	res.State = StateTransactionOpen

	if err := l.loadTx(ctx, tx, staged, runIDs, res); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Errorw("rollback failed", "file", path, "error", rbErr)
		}
		l.removeStaged(ctx, staged)
		return res, err
	}

	if err := tx.Commit(); err != nil {
		l.removeStaged(ctx, staged)
		return res, fmt.Errorf("commit %s: %w", path, err)
	}
	res.State = StateCommitted
	l.removeStaged(ctx, staged)

	res.Elapsed = time.Since(start)
	log.Infow("load complete",
		"file", filepath.Base(path),
		"raw_rows", res.RawRows,
		"inserted", res.Inserted,
		"elapsed", res.Elapsed)
	return res, nil
}

// loadTx runs the transactional middle of the pipeline. Statements execute
// per run id; most files carry exactly one, but nothing relies on that.
func (l *Loader) loadTx(ctx context.Context, tx warehouse.Tx, staged string, runIDs []string, res *FileResult) error {
	log := logger.L()

	deleteSQL := l.driver.DeleteRawSQL()
	for i, id := range runIDs {
		n, err := tx.Exec(ctx, deleteSQL, LikePattern(id))
		if err != nil {
			return fmt.Errorf("delete prior raw rows for run %q: %w", id, err)
		}
		res.RawDeleted += n
		if (i+1)%l.batchSize == 0 {
			log.Debugw("delete progress", "runs", i+1, "rows", res.RawDeleted)
		}
	}

	rows, err := tx.Exec(ctx, l.driver.CopySQL(staged))
	if err != nil {
		return fmt.Errorf("copy %s into raw table: %w", staged, err)
	}
	res.RawRows = rows
	res.State = StateRawLoaded
	log.Infow("copied staged file into raw table", "staged", staged, "rows", rows)

	for _, step := range l.driver.InsertSteps(staged) {
		var inserted int64
		for i, id := range runIDs {
			n, err := tx.Exec(ctx, step.SQL, step.Args(id)...)
			if err != nil {
				return fmt.Errorf("insert %s for run %q: %w", step.Name, id, err)
			}
			inserted += n
			if (i+1)%l.batchSize == 0 {
				log.Debugw("insert progress", "step", step.Name, "runs", i+1, "rows", inserted)
			}
		}
		res.Inserted[step.Name] = inserted
		res.State = stepState(step.Name)
		log.Infow("insert step complete", "step", step.Name, "rows", inserted)
	}
	return nil
}

// removeStaged clears the stage object on both the success and failure paths.
// It runs detached from ctx cancellation: an aborted pipeline still wants its
// orphan cleaned up.
func (l *Loader) removeStaged(ctx context.Context, staged string) {
	if err := l.stager.Remove(context.WithoutCancel(ctx), staged); err != nil {
		logger.L().Warnw("failed to remove staged file", "staged", staged, "error", err)
	}
}
