package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract query history from the AtScale repository into ingest CSVs",
	RunE:  runExtract,
}

var (
	flagExtractIngestDir string
	flagExtractQueryFile string
)

func init() {
	extractCmd.Flags().StringVar(&flagExtractIngestDir, "ingest-dir", "", "directory for ingest CSVs (default <working-dir>/ingest)")
	extractCmd.Flags().StringVar(&flagExtractQueryFile, "query-file", "", "SQL file overriding the built-in history query")
}

func runExtract(cmd *cobra.Command, args []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}

	dir := flagExtractIngestDir
	if dir == "" {
		dir = filepath.Join(workingDir, "ingest")
	}

	return extract.Run(cmd.Context(), c, extract.Options{
		IngestDir: dir,
		QueryFile: flagExtractQueryFile,
	})
}
