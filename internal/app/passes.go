package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"horse.fit/newslink/internal/cli"
	"horse.fit/newslink/internal/db"
	"horse.fit/newslink/internal/ingest"
	"horse.fit/newslink/internal/matching"
	"horse.fit/newslink/internal/pipeline"
	"horse.fit/newslink/internal/runlock"
)

type passFlags struct {
	envLoader  *cli.EnvLoader
	timeout    *time.Duration
	format     *string
	batchLimit *int
	noLock     *bool
}

func newPassFlagSet(name string, withBatchLimit bool) (*flag.FlagSet, passFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	flags := passFlags{
		envLoader: cli.AddEnvFlag(fs, ".env", "Path to the .env file"),
		timeout:   fs.Duration("timeout", 10*time.Minute, "Command timeout"),
		format:    fs.String("format", outputFormatTable, "Output format: table or json"),
		noLock:    fs.Bool("no-lock", false, "Skip the host-wide run lock"),
	}
	if withBatchLimit {
		flags.batchLimit = fs.Int("limit", 0, "Articles per matching batch (default MATCH_BATCH_LIMIT)")
	}
	return fs, flags
}

// preparePass parses flags and wires a runner. A non-zero code means the
// command should exit with it.
func preparePass(name string, args []string, withBatchLimit bool) (context.Context, func(), *pipeline.Runner, string, int) {
	fs, flags := newPassFlagSet(name, withBatchLimit)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, nil, "", -1
		}
		return nil, nil, nil, "", 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s does not accept positional arguments\n", name)
		return nil, nil, nil, "", 2
	}
	outputFormat, err := parseOutputFormat(*flags.format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return nil, nil, nil, "", 2
	}
	batchLimit := 0
	if flags.batchLimit != nil {
		if *flags.batchLimit < 0 {
			fmt.Fprintln(os.Stderr, "--limit must be >= 0")
			return nil, nil, nil, "", 2
		}
		batchLimit = *flags.batchLimit
	}

	cfg, logger, err := loadEnvAndConfig(flags.envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, nil, "", 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *flags.timeout)
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		cancel()
		logger.Error().Err(err).Str("command", name).Msg("failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return nil, nil, nil, "", 1
	}

	runner, err := buildRunner(cfg, pool, logger, runnerOptions{batchLimit: batchLimit, lock: !*flags.noLock})
	if err != nil {
		cancel()
		_ = pool.Close()
		fmt.Fprintf(os.Stderr, "Failed to initialize %s: %v\n", name, err)
		return nil, nil, nil, "", 1
	}

	cleanup := func() {
		cancel()
		_ = pool.Close()
	}
	return ctx, cleanup, runner, outputFormat, 0
}

func runIngest(args []string) int {
	ctx, cleanup, runner, format, code := preparePass("ingest", args, false)
	if code != 0 {
		return max(code, 0)
	}
	defer cleanup()

	result, err := runner.RunIngest(ctx)
	if err != nil {
		return reportPassError("ingest", err)
	}
	if format == outputFormatJSON {
		return exitOnJSONError(printJSON(result))
	}
	return exitOnTableError(writeIngestTable(result))
}

func runMatch(args []string) int {
	ctx, cleanup, runner, format, code := preparePass("match", args, true)
	if code != 0 {
		return max(code, 0)
	}
	defer cleanup()

	result, err := runner.RunMatch(ctx)
	if err != nil {
		return reportPassError("match", err)
	}
	if format == outputFormatJSON {
		return exitOnJSONError(printJSON(result))
	}
	return exitOnTableError(writeMatchTable(result))
}

func runAll(args []string) int {
	ctx, cleanup, runner, format, code := preparePass("run", args, true)
	if code != 0 {
		return max(code, 0)
	}
	defer cleanup()

	result, err := runner.RunAll(ctx)
	if err != nil {
		// Ingestion may have succeeded; still show what was done.
		if format == outputFormatTable && len(result.Ingest.Sources) > 0 {
			_ = writeIngestTable(result.Ingest)
		}
		return reportPassError("run", err)
	}
	if format == outputFormatJSON {
		return exitOnJSONError(printJSON(result))
	}
	if err := writeIngestTable(result.Ingest); err != nil {
		return exitOnTableError(err)
	}
	if err := writeMatchTable(result.Match); err != nil {
		return exitOnTableError(err)
	}
	return exitOnTableError(writeSummaryTable(result.Summary))
}

func reportPassError(name string, err error) int {
	switch {
	case errors.Is(err, runlock.ErrHeld):
		fmt.Fprintf(os.Stderr, "Skipped %s: %v\n", name, err)
		return 3
	case errors.Is(err, matching.ErrRosterUnavailable):
		fmt.Fprintf(os.Stderr, "%s aborted before any write: %v\n", name, err)
		return 1
	default:
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", name, err)
		return 1
	}
}

func exitOnJSONError(err error) int {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}
	return 0
}

func exitOnTableError(err error) int {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}

func ingestRows(result ingest.Result) [][]string {
	rows := make([][]string, 0, len(result.Sources))
	for _, source := range result.Sources {
		rows = append(rows, []string{
			source.Feed,
			strconv.Itoa(source.ArticlesFound),
			strconv.Itoa(source.Saved),
			strconv.Itoa(source.Skipped),
			strconv.Itoa(source.Discarded),
			truncateForTable(source.Error, 60),
		})
	}
	return rows
}

func writeIngestTable(result ingest.Result) error {
	return writeTable(
		[]string{"feed", "found", "saved", "skipped", "discarded", "error"},
		ingestRows(result),
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

func writeMatchTable(result matching.Result) error {
	rows := [][]string{
		{"articles processed", strconv.Itoa(result.Processed)},
		{"articles failed", strconv.Itoa(result.Failed)},
		{"roster size", strconv.Itoa(result.RosterSize)},
		{"contact matches", strconv.Itoa(result.Matches.Contacts)},
		{"company matches", strconv.Itoa(result.Matches.Companies)},
		{"project matches", strconv.Itoa(result.Matches.Projects)},
		{"notifications upserted", strconv.Itoa(result.Notifications.Upserted)},
		{"notifications failed", strconv.Itoa(result.Notifications.Failed)},
	}
	return writeTable([]string{"match", "count"}, rows, []columnAlignment{alignLeft, alignRight})
}

func writeSummaryTable(summary pipeline.Summary) error {
	rows := [][]string{
		{"articles_found", strconv.Itoa(summary.ArticlesFound)},
		{"articles_saved", strconv.Itoa(summary.ArticlesSaved)},
		{"contact_matches", strconv.Itoa(summary.ContactMatches)},
		{"company_matches", strconv.Itoa(summary.CompanyMatches)},
		{"project_matches", strconv.Itoa(summary.ProjectMatches)},
	}
	return writeTable([]string{"summary", "count"}, rows, []columnAlignment{alignLeft, alignRight})
}
