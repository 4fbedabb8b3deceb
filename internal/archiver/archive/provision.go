package archive

import (
	"context"
	"fmt"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/logger"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/warehouse"
)

// Provision creates the driver's stage, file format, tables and views if
// absent. It runs once per archive pass, before any file is touched; a
// failure here means the warehouse is unusable and the pass must not start.
func Provision(ctx context.Context, client warehouse.Client, d Driver) error {
	log := logger.L()
	log.Infow("ensuring warehouse objects exist", "protocol", d.Protocol())
	for _, stmt := range d.DDL() {
		if _, err := client.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("provision %s objects: %w", d.Protocol(), err)
		}
	}
	log.Infow("warehouse objects verified", "protocol", d.Protocol())
	return nil
}
