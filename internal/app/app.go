package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "process":
		return runProcess(args[1:])
	case "fetch":
		return runFetch(args[1:])
	case "cleanup":
		return runCleanup(args[1:])
	case "stats":
		return runStats(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "infact CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  infact <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health   Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  process  Cluster a JSON batch of articles")
	fmt.Fprintln(os.Stderr, "  fetch    Pull configured RSS feeds and process the articles")
	fmt.Fprintln(os.Stderr, "  cleanup  Delete clusters past the retention window")
	fmt.Fprintln(os.Stderr, "  stats    Show cluster store statistics")
	fmt.Fprintln(os.Stderr, "  serve    Start Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"infact <command> -h\" for command-specific flags.")
}
