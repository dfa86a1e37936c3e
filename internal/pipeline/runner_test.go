package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newslink/internal/feeds"
	"horse.fit/newslink/internal/ingest"
	"horse.fit/newslink/internal/matching"
	"horse.fit/newslink/internal/runlock"
)

type stubIngest struct {
	result  ingest.Result
	err     error
	calls   atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool
	sources []feeds.Source
}

func (s *stubIngest) Run(_ context.Context, sources []feeds.Source) (ingest.Result, error) {
	s.calls.Add(1)
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	time.Sleep(5 * time.Millisecond)
	s.active.Add(-1)
	s.sources = sources
	return s.result, s.err
}

type stubMatch struct {
	result matching.Result
	err    error
	calls  atomic.Int32
}

func (s *stubMatch) Run(context.Context) (matching.Result, error) {
	s.calls.Add(1)
	return s.result, s.err
}

func sampleIngestResult() ingest.Result {
	return ingest.Result{Sources: []ingest.SourceResult{
		{SourceID: "deadline", ArticlesFound: 3, Saved: 2, Skipped: 1},
		{SourceID: "variety", Error: "status 503"},
		{SourceID: "indiewire", ArticlesFound: 4, Saved: 4},
	}}
}

func TestRunAllSummarizesBothPasses(t *testing.T) {
	t.Parallel()

	sources := []feeds.Source{{ID: "deadline", URL: "https://deadline.com/feed/", DisplayName: "Deadline"}}
	ing := &stubIngest{result: sampleIngestResult()}
	match := &stubMatch{result: matching.Result{Processed: 6, Matches: matching.MatchCounts{Contacts: 2, Companies: 3, Projects: 1}}}

	runner := NewRunner(ing, match, sources, Options{}, zerolog.Nop())
	result, err := runner.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	want := Summary{ArticlesFound: 7, ArticlesSaved: 6, ContactMatches: 2, CompanyMatches: 3, ProjectMatches: 1}
	if result.Summary != want {
		t.Fatalf("summary = %+v, want %+v", result.Summary, want)
	}
	if len(ing.sources) != 1 || ing.sources[0].ID != "deadline" {
		t.Fatalf("expected configured sources to reach ingest, got %+v", ing.sources)
	}
	if result.FinishedAt.Before(result.StartedAt) {
		t.Fatalf("finished before start")
	}
}

func TestRunAllStopsWhenIngestFails(t *testing.T) {
	t.Parallel()

	ing := &stubIngest{err: errors.New("no feed sources configured")}
	match := &stubMatch{}

	_, err := NewRunner(ing, match, nil, Options{}, zerolog.Nop()).RunAll(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if match.calls.Load() != 0 {
		t.Fatalf("matching must not run after an ingest failure")
	}
}

func TestRunAllReturnsIngestResultWhenMatchFails(t *testing.T) {
	t.Parallel()

	ing := &stubIngest{result: sampleIngestResult()}
	match := &stubMatch{err: matching.ErrRosterUnavailable}

	result, err := NewRunner(ing, match, nil, Options{}, zerolog.Nop()).RunAll(context.Background())
	if !errors.Is(err, matching.ErrRosterUnavailable) {
		t.Fatalf("expected roster error, got %v", err)
	}
	if result.Summary.ArticlesSaved != 6 || len(result.Ingest.Sources) != 3 {
		t.Fatalf("expected ingest result to survive, got %+v", result)
	}
}

func TestRunIngestSerializesConcurrentCalls(t *testing.T) {
	t.Parallel()

	ing := &stubIngest{}
	runner := NewRunner(ing, &stubMatch{}, nil, Options{}, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = runner.RunIngest(context.Background())
		}()
	}
	wg.Wait()

	if ing.calls.Load() != 4 {
		t.Fatalf("expected 4 ingest calls, got %d", ing.calls.Load())
	}
	if ing.overlap.Load() {
		t.Fatalf("ingest passes overlapped")
	}
}

func TestRunMatchRefusesWhenFileLockHeld(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	held, err := runlock.Acquire(dir, PassMatch)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer held.Release()

	match := &stubMatch{}
	runner := NewRunner(&stubIngest{}, match, nil, Options{LockDir: dir}, zerolog.Nop())
	if _, err := runner.RunMatch(context.Background()); !errors.Is(err, runlock.ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
	if match.calls.Load() != 0 {
		t.Fatalf("match pass ran while locked")
	}

	if _, err := runner.RunIngest(context.Background()); err != nil {
		t.Fatalf("ingest lock is independent, got %v", err)
	}
}

func TestUnconfiguredRunner(t *testing.T) {
	t.Parallel()

	runner := NewRunner(nil, nil, nil, Options{}, zerolog.Nop())
	if _, err := runner.RunIngest(context.Background()); err == nil {
		t.Fatalf("expected ingest error")
	}
	if _, err := runner.RunMatch(context.Background()); err == nil {
		t.Fatalf("expected match error")
	}
}
