package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"horse.fit/newslink/internal/cli"
	"horse.fit/newslink/internal/feeds"
)

func runSources(args []string) int {
	fs := flag.NewFlagSet("sources", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	file := fs.String("file", "", "Feed sources JSON file (default FEED_SOURCES_FILE, else the built-in list)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "sources does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	// Only the source list is needed here, so a database is not required.
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	path := strings.TrimSpace(*file)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("FEED_SOURCES_FILE"))
	}

	sources, err := feeds.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid feed sources: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		return exitOnJSONError(printJSON(sources))
	}
	return exitOnTableError(writeTable([]string{"id", "name", "url"}, sourceRows(sources), nil))
}

func sourceRows(sources []feeds.Source) [][]string {
	rows := make([][]string, 0, len(sources))
	for _, source := range sources {
		rows = append(rows, []string{source.ID, source.Name(), source.URL})
	}
	return rows
}
