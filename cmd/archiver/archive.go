package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/archive"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/logger"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/metrics"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/metrics/datadog"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/runlog"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/warehouse"
)

// runArchive is the shared body of the jdbc and xmla commands: discover the
// protocol's session logs, connect to Snowflake, and run one archive pass.
func runArchive(ctx context.Context, protocol, logDir string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}
	if err := c.RequireSnowflake(); err != nil {
		return err
	}
	log := logger.L()

	dir := logDir
	if dir == "" {
		dir = workingDir
	}
	loc := runlog.Locator{Dir: dir}

	var disc runlog.Discovery
	switch protocol {
	case "jdbc":
		names := make([]string, 0, len(c.Models))
		for _, m := range c.Models {
			names = append(names, m.Name)
		}
		disc, err = loc.FindJdbc(names)
	case "xmla":
		disc, err = loc.FindXmla(c.Cubes)
	default:
		return fmt.Errorf("unsupported protocol: %s", protocol)
	}
	if err != nil {
		return err
	}
	for _, extra := range disc.Extras {
		log.Warnw("archiving log not named for any configured model", "file", extra)
	}
	if len(disc.Files) == 0 {
		log.Infow("no session logs found", "dir", dir, "protocol", protocol)
		return nil
	}

	client, err := warehouse.Connect(ctx, c.Snowflake)
	if err != nil {
		return err
	}
	defer client.Close()

	driver, err := archive.NewDriver(protocol)
	if err != nil {
		return err
	}

	var backend metrics.Backend = metrics.Nop{}
	if c.Datadog.APIKey != "" || os.Getenv("DD_API_KEY") != "" {
		b, err := datadog.NewBackend(ctx, datadog.FromConfig(c.Datadog))
		if err != nil {
			log.Warnw("datadog backend unavailable, metrics disabled", "error", err)
		} else {
			defer b.Close()
			backend = b
		}
	}

	r := &archive.Runner{
		Client:     client,
		Driver:     driver,
		Metrics:    backend,
		ThrottleMs: c.ThrottleMs,
	}
	stats, err := r.Run(ctx, disc.Files)
	if err != nil {
		return err
	}
	log.Infow("archive command finished",
		"protocol", protocol,
		"attempted", stats.Attempted,
		"loaded", stats.Loaded,
		"skipped", stats.Skipped,
		"failed", stats.Failed)
	return nil
}
