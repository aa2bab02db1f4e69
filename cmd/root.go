package cmd

import (
	"context"
	"fmt"
	"strings"
)

const usage = `obfin-advisor answers personal finance questions using the caller's spending totals.

Usage:
  obfin-advisor serve [flags]

Commands:
  serve    Start the HTTP server
  version  Print the build version

Flags:
  -h, --help  Show this help message`

// Version is reported by the version command.
var Version = "dev"

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return printUsage()
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "version", "--version":
		fmt.Println(Version)
		return nil
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage() error {
	fmt.Println(strings.TrimSpace(usage))
	return nil
}
