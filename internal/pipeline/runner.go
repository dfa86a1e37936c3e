package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newslink/internal/feeds"
	"horse.fit/newslink/internal/globaltime"
	"horse.fit/newslink/internal/ingest"
	"horse.fit/newslink/internal/matching"
	"horse.fit/newslink/internal/runlock"
)

const (
	PassIngest = "ingest"
	PassMatch  = "match"
	PassRun    = "run"
)

type IngestPass interface {
	Run(ctx context.Context, sources []feeds.Source) (ingest.Result, error)
}

type MatchPass interface {
	Run(ctx context.Context) (matching.Result, error)
}

// Summary is the rollup reported by a combined run.
type Summary struct {
	ArticlesFound  int `json:"articles_found"`
	ArticlesSaved  int `json:"articles_saved"`
	ContactMatches int `json:"contact_matches"`
	CompanyMatches int `json:"company_matches"`
	ProjectMatches int `json:"project_matches"`
}

type RunResult struct {
	Ingest     ingest.Result   `json:"ingest"`
	Match      matching.Result `json:"match"`
	Summary    Summary         `json:"summary"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

type Options struct {
	// LockDir enables a host-wide file lock per pass in addition to the
	// in-process mutex. Empty disables file locking.
	LockDir string
}

// Runner sequences the ingestion and matching passes. Each pass is
// serialized within the process; the combined run holds both.
type Runner struct {
	ingest  IngestPass
	match   MatchPass
	sources []feeds.Source
	opts    Options
	logger  zerolog.Logger

	ingestMu sync.Mutex
	matchMu  sync.Mutex
}

func NewRunner(ingestPass IngestPass, matchPass MatchPass, sources []feeds.Source, opts Options, logger zerolog.Logger) *Runner {
	return &Runner{
		ingest:  ingestPass,
		match:   matchPass,
		sources: sources,
		opts:    opts,
		logger:  logger,
	}
}

func (r *Runner) Sources() []feeds.Source {
	return append([]feeds.Source(nil), r.sources...)
}

func (r *Runner) RunIngest(ctx context.Context) (ingest.Result, error) {
	if r == nil || r.ingest == nil {
		return ingest.Result{}, fmt.Errorf("ingest pass is not configured")
	}
	r.ingestMu.Lock()
	defer r.ingestMu.Unlock()

	release, err := r.fileLock(PassIngest)
	if err != nil {
		return ingest.Result{}, err
	}
	defer release()

	return r.ingest.Run(ctx, r.sources)
}

func (r *Runner) RunMatch(ctx context.Context) (matching.Result, error) {
	if r == nil || r.match == nil {
		return matching.Result{}, fmt.Errorf("match pass is not configured")
	}
	r.matchMu.Lock()
	defer r.matchMu.Unlock()

	release, err := r.fileLock(PassMatch)
	if err != nil {
		return matching.Result{}, err
	}
	defer release()

	return r.match.Run(ctx)
}

// RunAll ingests every source and then matches the backlog. A failed
// matching pass still returns the ingestion result alongside the error.
func (r *Runner) RunAll(ctx context.Context) (RunResult, error) {
	if r == nil {
		return RunResult{}, fmt.Errorf("runner is not configured")
	}
	result := RunResult{StartedAt: globaltime.UTC()}

	release, err := r.fileLock(PassRun)
	if err != nil {
		return result, err
	}
	defer release()

	ingestResult, err := r.RunIngest(ctx)
	result.Ingest = ingestResult
	if err != nil {
		result.FinishedAt = globaltime.UTC()
		return result, fmt.Errorf("ingest: %w", err)
	}

	matchResult, err := r.RunMatch(ctx)
	result.Match = matchResult
	result.Summary = Summarize(ingestResult, matchResult)
	result.FinishedAt = globaltime.UTC()
	if err != nil {
		return result, fmt.Errorf("match: %w", err)
	}

	r.logger.Info().
		Int("articles_found", result.Summary.ArticlesFound).
		Int("articles_saved", result.Summary.ArticlesSaved).
		Int("contact_matches", result.Summary.ContactMatches).
		Int("company_matches", result.Summary.CompanyMatches).
		Int("project_matches", result.Summary.ProjectMatches).
		Dur("duration", result.FinishedAt.Sub(result.StartedAt)).
		Msg("combined run finished")

	return result, nil
}

func Summarize(ingestResult ingest.Result, matchResult matching.Result) Summary {
	found, saved, _ := ingestResult.Totals()
	return Summary{
		ArticlesFound:  found,
		ArticlesSaved:  saved,
		ContactMatches: matchResult.Matches.Contacts,
		CompanyMatches: matchResult.Matches.Companies,
		ProjectMatches: matchResult.Matches.Projects,
	}
}

func (r *Runner) fileLock(pass string) (func(), error) {
	if r.opts.LockDir == "" {
		return func() {}, nil
	}
	lock, err := runlock.Acquire(r.opts.LockDir, pass)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Str("pass", pass).Str("lock", lock.Path()).Msg("run lock acquired")
	return func() {
		if err := lock.Release(); err != nil {
			r.logger.Warn().Err(err).Str("pass", pass).Str("lock", lock.Path()).Msg("failed to release run lock")
		}
	}, nil
}
