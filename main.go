package main

import (
	"fmt"
	"os"

	"github.com/gerunddev/postkit/internal/commands"
	"github.com/gerunddev/postkit/internal/config"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(commands.ExitFatal)
	}

	command := os.Args[1]

	switch command {
	case "import", "i":
		os.Exit(commands.Import(os.Args[2:]))
	case "fix-dates", "dates":
		os.Exit(commands.FixDates(os.Args[2:]))
	case "reformat", "fmt":
		os.Exit(commands.Reformat(os.Args[2:]))
	case "config":
		os.Exit(commands.Config(os.Args[2:]))
	case "version", "-v", "--version":
		fmt.Printf("postkit v%s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(commands.ExitFatal)
	}
}

func printUsage() {
	usage := fmt.Sprintf(`postkit - Turn exported note archives into Jekyll posts and keep them tidy

Usage:
  postkit <command> [options]

Commands:
  import      Import every zip archive in a directory as a post (alias: i)
  fix-dates   Set the date field of every post in a directory (alias: dates)
  reformat    Normalize spacing and add the image stylesheet (alias: fmt)
  config      Print the effective configuration (--init writes defaults)
  version     Show version information
  help        Show this help message

Run 'postkit <command> --help' for the options of a command.

Examples:
  postkit import ~/Downloads/exports
  postkit import exports --date 2025-10-01 --category notes --strict
  postkit fix-dates --dir temp --date "2025-07-17 12:05:57 -0400"
  postkit reformat --dry-run --diff
  postkit reformat

Exit codes:
  0  success
  1  fatal error (bad flags, config, missing directory)
  2  the batch finished but some files failed

Configuration:
  Config file: %s (override with POSTKIT_CONFIG or --config)
`, config.ConfigPath())
	fmt.Print(usage)
}
