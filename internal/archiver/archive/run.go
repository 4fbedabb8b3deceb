package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/logger"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/metrics"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/warehouse"
)

// Runner drives a whole archive pass: provision the warehouse objects once,
// then load each discovered file in sequence. A failing file is logged,
// counted and skipped; the pass only fails outright when provisioning fails
// or when every attempted file failed.
type Runner struct {
	Client  warehouse.Client
	Driver  Driver
	Metrics metrics.Backend

	// ThrottleMs pauses between files so back-to-back COPYs do not saturate
	// a small warehouse. Zero disables the pause.
	ThrottleMs int
}

// FileError records one file's failure without aborting the pass.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string { return fmt.Sprintf("%s: %v", e.File, e.Err) }
func (e FileError) Unwrap() error { return e.Err }

// RunStats tallies one archive pass.
type RunStats struct {
	Attempted int
	Loaded    int
	Skipped   int
	Failed    int
	Results   []*FileResult
	Failures  []FileError
}

// Run archives the given files. The returned stats are valid even when the
// error is non-nil.
func (r *Runner) Run(ctx context.Context, files []string) (*RunStats, error) {
	log := logger.L()
	m := r.Metrics
	if m == nil {
		m = metrics.Nop{}
	}
	protocol := r.Driver.Protocol()

	if err := Provision(ctx, r.Client, r.Driver); err != nil {
		return nil, err
	}

	stager := NewStager(r.Client, r.Driver.Stage())
	loader := NewLoader(r.Client, stager, r.Driver)

	stats := &RunStats{}
	for _, f := range files {
		stats.Attempted++
		res, err := loader.LoadFile(ctx, f)
		if err != nil {
			stats.Failed++
			stats.Failures = append(stats.Failures, FileError{File: f, Err: err})
			m.Count("gatling.archive.files.total", 1, metrics.Labels{"protocol": protocol, "status": "failed"})
			log.Errorw("failed to archive log file, continuing with next",
				"file", f, "state", res.State, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if res.Skipped {
			stats.Skipped++
			m.Count("gatling.archive.files.total", 1, metrics.Labels{"protocol": protocol, "status": "skipped"})
			continue
		}

		stats.Loaded++
		stats.Results = append(stats.Results, res)
		m.Count("gatling.archive.files.total", 1, metrics.Labels{"protocol": protocol, "status": "loaded"})
		m.Count("gatling.archive.run_ids.total", float64(len(res.RunIDs)), metrics.Labels{"protocol": protocol})
		m.Count("gatling.archive.rows.deleted", float64(res.RawDeleted), metrics.Labels{"protocol": protocol})
		m.Count("gatling.archive.rows.total", float64(res.RawRows), metrics.Labels{"protocol": protocol, "layer": "raw"})
		for step, n := range res.Inserted {
			m.Count("gatling.archive.rows.total", float64(n), metrics.Labels{"protocol": protocol, "layer": step})
		}
		m.Timing("gatling.archive.file.duration", res.Elapsed, metrics.Labels{"protocol": protocol})

		if r.ThrottleMs > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(time.Duration(r.ThrottleMs) * time.Millisecond):
			}
		}
	}

	log.Infow("archive pass finished",
		"protocol", protocol,
		"attempted", stats.Attempted,
		"loaded", stats.Loaded,
		"skipped", stats.Skipped,
		"failed", stats.Failed)

	if err := m.Flush(); err != nil {
		log.Warnw("metrics flush failed", "error", err)
	}

	if stats.Attempted > 0 && stats.Loaded == 0 && stats.Failed > 0 {
		return stats, fmt.Errorf("archive pass failed: %d of %d files errored, none loaded", stats.Failed, stats.Attempted)
	}
	return stats, nil
}
