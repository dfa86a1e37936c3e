package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/newslink/internal/config"
	"horse.fit/newslink/internal/db"
	"horse.fit/newslink/internal/extract"
	"horse.fit/newslink/internal/feeds"
	"horse.fit/newslink/internal/fetcher"
	"horse.fit/newslink/internal/ingest"
	"horse.fit/newslink/internal/langdetect"
	"horse.fit/newslink/internal/logging"
	"horse.fit/newslink/internal/matching"
	"horse.fit/newslink/internal/notify"
	"horse.fit/newslink/internal/pipeline"
	"horse.fit/newslink/internal/reader"
)

type runnerOptions struct {
	batchLimit int
	lock       bool
}

// buildRunner wires both passes against pool using cfg.
func buildRunner(cfg *config.Config, pool *db.Pool, logger zerolog.Logger, opts runnerOptions) (*pipeline.Runner, error) {
	sources, err := feeds.Load(cfg.FeedSourcesFile)
	if err != nil {
		return nil, err
	}

	roster, err := rosterBackend(cfg, pool)
	if err != nil {
		return nil, err
	}

	feedFetcher := fetcher.New(fetcher.Options{
		Timeout:     cfg.FeedFetchTimeout,
		UserAgent:   cfg.FeedUserAgent,
		Concurrency: cfg.FeedConcurrency,
		MaxBytes:    cfg.FeedMaxBytes,
	}, logging.Component(logger, "fetcher"))
	extractor := extract.NewExtractor(nil, langdetect.NewLingua(), logging.Component(logger, "extract"))

	var body ingest.BodyReader
	if cfg.FetchArticleBody {
		body = reader.New(reader.Options{UserAgent: cfg.FeedUserAgent})
	}
	ingestService := ingest.NewService(pool, feedFetcher, extractor, body, logging.Component(logger, "ingest"))

	batchLimit := cfg.MatchBatchLimit
	if opts.batchLimit > 0 {
		batchLimit = opts.batchLimit
	}
	consolidator := notify.NewConsolidator(pool, logging.Component(logger, "notify"))
	matchService := matching.NewService(pool, roster, consolidator, matching.Options{
		BatchLimit: batchLimit,
	}, logging.Component(logger, "matching"))

	runnerOpts := pipeline.Options{}
	if opts.lock {
		runnerOpts.LockDir = lockDir(cfg)
	}
	return pipeline.NewRunner(ingestService, matchService, sources, runnerOpts, logging.Component(logger, "pipeline")), nil
}

// rosterBackend selects where contacts, companies and projects are read from.
func rosterBackend(cfg *config.Config, pool *db.Pool) (matching.EntityRepository, error) {
	switch cfg.NormalizedRosterBackend() {
	case config.RosterBackendSupabase:
		roster, err := db.NewSupabaseRoster(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, fmt.Errorf("init supabase roster: %w", err)
		}
		return roster, nil
	default:
		return pool, nil
	}
}

func lockDir(cfg *config.Config) string {
	if dir := strings.TrimSpace(cfg.RunLockDir); dir != "" {
		return dir
	}
	return os.TempDir()
}
