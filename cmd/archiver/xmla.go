package main

import (
	"github.com/spf13/cobra"
)

var xmlaCmd = &cobra.Command{
	Use:   "xmla",
	Short: "Archive XMLA session logs into Snowflake",
	RunE:  runXmla,
}

var flagXmlaLogDir string

func init() {
	xmlaCmd.Flags().StringVar(&flagXmlaLogDir, "log-dir", "", "directory holding session logs (default is the working dir)")
}

func runXmla(cmd *cobra.Command, args []string) error {
	return runArchive(cmd.Context(), "xmla", flagXmlaLogDir)
}
