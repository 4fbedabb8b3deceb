package main

import (
	"github.com/spf13/cobra"
)

var jdbcCmd = &cobra.Command{
	Use:   "jdbc",
	Short: "Archive JDBC session logs into Snowflake",
	RunE:  runJdbc,
}

var flagJdbcLogDir string

func init() {
	jdbcCmd.Flags().StringVar(&flagJdbcLogDir, "log-dir", "", "directory holding session logs (default is the working dir)")
}

func runJdbc(cmd *cobra.Command, args []string) error {
	return runArchive(cmd.Context(), "jdbc", flagJdbcLogDir)
}
