package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Filter and summarize inspect events",
	Long: `Filter NDJSON events produced by inspect and print matches or a summary.

Examples:
  archiver report --input events.ndjson --summary
  archiver report --input events.ndjson --model "Internet Sales" --status FAILED
  archiver report --input events.ndjson --kind header --min-duration 5s --last 7d`,
	RunE: runReport,
}

var (
	flagReportInput       []string
	flagReportOutput      string
	flagReportRunID       string
	flagReportModels      []string
	flagReportProtocols   []string
	flagReportKinds       []string
	flagReportStatuses    []string
	flagReportMinDuration string
	flagReportSince       string
	flagReportLast        string
	flagReportSummary     bool
	flagReportLimit       int
)

func init() {
	reportCmd.Flags().StringSliceVar(&flagReportInput, "input", nil, "input NDJSON file(s) (default stdin)")
	reportCmd.Flags().StringVar(&flagReportOutput, "output", "", "output file (default stdout)")
	reportCmd.Flags().StringVar(&flagReportRunID, "run-id", "", "exact gatling run id to match")
	reportCmd.Flags().StringSliceVar(&flagReportModels, "model", nil, "model name(s) to match")
	reportCmd.Flags().StringSliceVar(&flagReportProtocols, "protocol", nil, "protocol(s) to match: jdbc|xmla")
	reportCmd.Flags().StringSliceVar(&flagReportKinds, "kind", nil, "record kind(s) to match: header|detail")
	reportCmd.Flags().StringSliceVar(&flagReportStatuses, "status", nil, "status(es) to match: SUCCEEDED|FAILED")
	reportCmd.Flags().StringVar(&flagReportMinDuration, "min-duration", "", "keep events at least this slow (e.g. 500ms, 5s)")
	reportCmd.Flags().StringVar(&flagReportSince, "since", "", "keep events on or after this time")
	reportCmd.Flags().StringVar(&flagReportLast, "last", "", "keep events from the last window (e.g. 24h, 7d)")
	reportCmd.Flags().BoolVar(&flagReportSummary, "summary", false, "print summary counts to stderr")
	reportCmd.Flags().IntVar(&flagReportLimit, "limit", 0, "stop after this many matches (0 = no limit)")
}

func runReport(cmd *cobra.Command, args []string) error {
	opts := report.ReportOptions{
		InputFiles: flagReportInput,
		OutputFile: flagReportOutput,
		RunID:      flagReportRunID,
		Models:     flagReportModels,
		Protocols:  flagReportProtocols,
		Kinds:      flagReportKinds,
		Statuses:   flagReportStatuses,
		Summary:    flagReportSummary,
		Limit:      flagReportLimit,
	}

	if flagReportMinDuration != "" {
		d, err := report.ParseDuration(flagReportMinDuration)
		if err != nil {
			return fmt.Errorf("invalid --min-duration: %w", err)
		}
		opts.MinDuration = d
	}
	if flagReportSince != "" {
		ts, err := report.ParseTimestamp(flagReportSince)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		opts.Since = ts
	}
	if flagReportLast != "" {
		d, err := report.ParseDuration(flagReportLast)
		if err != nil {
			return fmt.Errorf("invalid --last: %w", err)
		}
		opts.LastDuration = d
	}

	return report.RunReport(opts)
}
