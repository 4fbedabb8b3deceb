package main

import (
	"flag"
	"fmt"
	"os"

	loggen "github.com/rwidjaja/atscale-gatling/internal/loggen"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		genCmd := flag.NewFlagSet("generate", flag.ExitOnError)
		configPath := genCmd.String("config", "", "Path to config file")
		genCmd.Parse(os.Args[2:])
		if *configPath == "" {
			fmt.Println("Error: --config is required for 'generate'")
			genCmd.Usage()
			os.Exit(1)
		}
		fmt.Printf("Running 'generate' with config: %s\n", *configPath)
		loggen.Generate(configPath)

	case "sample":
		fmt.Print(loggen.SampleConfig)

	case "help", "--help", "-h":
		printHelp()
	default:
		fmt.Printf("Unknown subcommand: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`Usage: loggen <subcommand> [flags]`)
	fmt.Println()
	fmt.Println("Subcommands:")
	fmt.Println("  generate --config <path>   Generate session logs from a config file")
	fmt.Println("  sample                     Print a starter config to stdout")
	fmt.Println("  help                       Show this help message")
}
