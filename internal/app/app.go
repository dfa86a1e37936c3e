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
	case "sources":
		return runSources(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "match":
		return runMatch(args[1:])
	case "run", "run-once":
		return runAll(args[1:])
	case "serve":
		return runServe(args[1:])
	case "articles":
		return runArticles(args[1:])
	case "notifications":
		return runNotifications(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "newslink CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  newslink <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health         Verify database connectivity and show article counts")
	fmt.Fprintln(os.Stderr, "  sources        List and validate the configured feed sources")
	fmt.Fprintln(os.Stderr, "  ingest         Fetch every feed and store new articles")
	fmt.Fprintln(os.Stderr, "  match          Match the unprocessed backlog against the entity roster")
	fmt.Fprintln(os.Stderr, "  run            Run ingest + match in sequence")
	fmt.Fprintln(os.Stderr, "  run-once       Alias for run")
	fmt.Fprintln(os.Stderr, "  serve          Start Echo API server")
	fmt.Fprintln(os.Stderr, "  articles       List stored articles")
	fmt.Fprintln(os.Stderr, "  notifications  List a workspace's notifications")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"newslink <command> -h\" for command-specific flags.")
}
