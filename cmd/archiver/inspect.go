package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/parsers"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/runner"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Convert a raw session log → NDJSON events, without Snowflake",
	RunE:  runInspect,
}

var (
	flagInspectProtocol string
	flagInspectInput    string
	flagInspectOutput   string
	flagInspectReject   string
	flagInspectRunLog   string
	flagInspectEmitRaw  bool
	flagInspectMaxSoap  int
)

func init() {
	inspectCmd.Flags().StringVar(&flagInspectProtocol, "protocol", "", "protocol: jdbc|xmla (required)")
	inspectCmd.Flags().StringVar(&flagInspectInput, "input", "", "input file (default stdin)")
	inspectCmd.Flags().StringVar(&flagInspectOutput, "output", "", "output file (default stdout)")
	inspectCmd.Flags().StringVar(&flagInspectReject, "reject-file", "", "file to store rejected/skipped log lines")
	inspectCmd.Flags().StringVar(&flagInspectRunLog, "run-log", "", "NDJSON file the pass summary is appended to")
	inspectCmd.Flags().BoolVar(&flagInspectEmitRaw, "emit-raw", false, "include raw_line in output events")
	inspectCmd.Flags().IntVar(&flagInspectMaxSoap, "max-soap-bytes", 0, "truncate parsed SOAP envelopes to this many bytes (0 = keep all)")
	inspectCmd.MarkFlagRequired("protocol")
}

func runInspect(cmd *cobra.Command, args []string) error {
	// Input reader
	var in io.Reader = os.Stdin
	inputName := "stdin"
	if flagInspectInput != "" {
		f, err := os.Open(flagInspectInput)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
		inputName = flagInspectInput
	}

	// Output writer
	var out io.Writer = os.Stdout
	if flagInspectOutput != "" {
		f, err := os.Create(flagInspectOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	p, err := parsers.NewFactory().NewParser(flagInspectProtocol, parsers.ParserOptions{
		EmitRaw:      flagInspectEmitRaw,
		MaxSoapBytes: flagInspectMaxSoap,
	})
	if err != nil {
		return fmt.Errorf("create parser: %w", err)
	}

	_, err = runner.RunInspect(cmd.Context(), p, in, out, runner.InspectOptions{
		Input:      inputName,
		Protocol:   flagInspectProtocol,
		RejectFile: flagInspectReject,
		RunLog:     flagInspectRunLog,
	})
	return err
}
