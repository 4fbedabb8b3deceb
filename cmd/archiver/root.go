package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rwidjaja/atscale-gatling/internal/archiver/config"
	"github.com/rwidjaja/atscale-gatling/internal/archiver/logger"
)

var (
	cfgFile    string
	workingDir string
	cfg        *config.Config

	flagLogLevel        string
	flagLogConsoleLevel string
	flagLogDebugFile    string
	flagLogInfoFile     string
	flagDev             bool

	Version = "v0.2"
	build   = "dev"

	rootCmd = &cobra.Command{
		Use:   "archiver",
		Short: "archiver - Gatling session log archival into Snowflake",
		Long:  "archiver: discover Gatling session logs, parse them, and load them into the Snowflake archive warehouse.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// load systems.properties
			path := cfgFile
			if path == "" {
				path = filepath.Join(workingDir, "config", "systems.properties")
			}
			v := viper.New()
			v.SetConfigFile(path)
			v.SetConfigType("properties")
			if err := v.ReadInConfig(); err != nil {
				// Commands that need no config (inspect, report) still run;
				// requireConfig rejects the rest with a real error.
				fmt.Fprintf(os.Stderr, "Warning: could not read config (%v). Commands that need one will fail.\n", err)
			} else {
				c, err := config.Load(v)
				if err != nil {
					return err
				}
				cfg = c
			}

			if err := logger.InitLogger(logger.LogConfig{
				Level:        flagLogLevel,
				ConsoleLevel: flagLogConsoleLevel,
				DebugFile:    flagLogDebugFile,
				InfoFile:     flagLogInfoFile,
				Development:  flagDev,
			}); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
	}
)

func init() {
	cobra.OnInitialize()
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <working-dir>/config/systems.properties)")
	rootCmd.PersistentFlags().StringVar(&workingDir, "working-dir", ".", "run directory holding config/, session logs and ingest/")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "level for file log sinks (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&flagLogConsoleLevel, "log-console-level", "info", "level for the stderr sink")
	rootCmd.PersistentFlags().StringVar(&flagLogDebugFile, "log-debug-file", "", "optional JSON log file receiving --log-level and above")
	rootCmd.PersistentFlags().StringVar(&flagLogInfoFile, "log-info-file", "", "optional JSON log file receiving info and above")
	rootCmd.PersistentFlags().BoolVar(&flagDev, "dev", false, "development logging (caller info)")
	// add subcommands
	rootCmd.AddCommand(jdbcCmd)
	rootCmd.AddCommand(xmlaCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(versionCmd)
}

// requireConfig hands back the loaded config for commands that cannot run
// without systems.properties.
func requireConfig() (*config.Config, error) {
	if cfg == nil {
		path := cfgFile
		if path == "" {
			path = filepath.Join(workingDir, "config", "systems.properties")
		}
		return nil, fmt.Errorf("no config loaded: create %s or pass --config", path)
	}
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func main() {
	Execute()
}
