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
	"horse.fit/newslink/internal/feeds"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Second, "Database ping timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, err := loadEnvAndConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	sources, err := feeds.Load(cfg.FeedSourcesFile)
	if err != nil {
		logger.Error().Err(err).Msg("feed sources are invalid")
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("health check failed")
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	counts, err := pool.CountArticles(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("health check failed")
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}

	logger.Info().
		Dur("timeout", *timeout).
		Int64("articles", counts.Total).
		Int64("unprocessed", counts.Unprocessed).
		Msg("database health check passed")

	return exitOnTableError(writeTable([]string{"check", "value"}, [][]string{
		{"database", "ok"},
		{"roster backend", cfg.NormalizedRosterBackend()},
		{"feed sources", strconv.Itoa(len(sources))},
		{"articles", strconv.FormatInt(counts.Total, 10)},
		{"unprocessed", strconv.FormatInt(counts.Unprocessed, 10)},
	}, []columnAlignment{alignLeft, alignRight}))
}
