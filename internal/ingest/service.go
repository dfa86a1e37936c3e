// Package ingest runs the ingestion pass: fetch every feed, extract its
// articles and store the ones whose canonical URL has not been seen before.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/newslink/internal/db"
	"horse.fit/newslink/internal/extract"
	"horse.fit/newslink/internal/feeds"
	"horse.fit/newslink/internal/fetcher"
	"horse.fit/newslink/internal/globaltime"
)

const defaultStoreConcurrency = 4

// ArticleStore is the persistence the ingestion pass needs.
type ArticleStore interface {
	ArticleExistsByURL(ctx context.Context, url string) (bool, error)
	InsertArticle(ctx context.Context, article db.Article) (bool, error)
}

type FeedFetcher interface {
	Fetch(ctx context.Context, sources []feeds.Source) []fetcher.Document
}

// BodyReader fetches the readable text of an article page.
type BodyReader interface {
	FetchBody(ctx context.Context, pageURL string) (string, error)
}

type Service struct {
	store     ArticleStore
	fetcher   FeedFetcher
	extractor *extract.Extractor
	body      BodyReader
	logger    zerolog.Logger
}

// SourceResult is the per-feed outcome. ArticlesFound counts usable items;
// for a source that was not cancelled it equals Saved + Skipped + Failed.
type SourceResult struct {
	SourceID      string `json:"source_id"`
	Feed          string `json:"feed"`
	ArticlesFound int    `json:"articlesFound"`
	Saved         int    `json:"saved"`
	Skipped       int    `json:"skipped"`
	Discarded     int    `json:"discarded"`
	Failed        int    `json:"failed,omitempty"`
	Error         string `json:"error,omitempty"`
}

type Result struct {
	Sources    []SourceResult `json:"results"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Totals sums the per-source counters.
func (r Result) Totals() (found, saved, skipped int) {
	for _, source := range r.Sources {
		found += source.ArticlesFound
		saved += source.Saved
		skipped += source.Skipped
	}
	return found, saved, skipped
}

// FailedSources counts the feeds that produced an error.
func (r Result) FailedSources() int {
	failed := 0
	for _, source := range r.Sources {
		if source.Error != "" {
			failed++
		}
	}
	return failed
}

// NewService wires the ingestion pass. body may be nil to skip page fetching.
func NewService(store ArticleStore, feedFetcher FeedFetcher, extractor *extract.Extractor, body BodyReader, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		fetcher:   feedFetcher,
		extractor: extractor,
		body:      body,
		logger:    logger,
	}
}

// Run ingests every source. Feed failures are reported per source and never
// fail the run; an error means the service itself could not run.
func (s *Service) Run(ctx context.Context, sources []feeds.Source) (Result, error) {
	if s == nil || s.store == nil || s.fetcher == nil || s.extractor == nil {
		return Result{}, fmt.Errorf("ingest service is not initialized")
	}
	if len(sources) == 0 {
		return Result{}, fmt.Errorf("no feed sources configured")
	}

	result := Result{StartedAt: globaltime.UTC()}
	docs := s.fetcher.Fetch(ctx, sources)

	result.Sources = make([]SourceResult, len(docs))
	var group errgroup.Group
	group.SetLimit(defaultStoreConcurrency)
	for i, doc := range docs {
		group.Go(func() error {
			result.Sources[i] = s.IngestDocument(ctx, doc)
			return nil
		})
	}
	_ = group.Wait()

	result.FinishedAt = globaltime.UTC()
	found, saved, skipped := result.Totals()
	s.logger.Info().
		Int("sources", len(sources)).
		Int("failed_sources", result.FailedSources()).
		Int("articles_found", found).
		Int("saved", saved).
		Int("skipped", skipped).
		Dur("duration", result.FinishedAt.Sub(result.StartedAt)).
		Msg("ingestion pass finished")

	return result, nil
}

// IngestDocument extracts and stores the articles of one fetched document.
func (s *Service) IngestDocument(ctx context.Context, doc fetcher.Document) SourceResult {
	res := SourceResult{
		SourceID: doc.Source.ID,
		Feed:     doc.Source.Name(),
	}
	logger := s.logger.With().Str("source_id", doc.Source.ID).Logger()

	if doc.Err != nil {
		res.Error = doc.Err.Error()
		return res
	}
	if doc.Empty() {
		res.Error = "feed document is empty"
		return res
	}

	extraction := s.extractor.Extract(doc.Source.ID, doc.Body)
	if extraction.Err != nil {
		res.Error = extraction.Err.Error()
		return res
	}
	res.ArticlesFound = extraction.Usable
	res.Discarded = extraction.Found - extraction.Usable

	for _, candidate := range extraction.Articles {
		if err := ctx.Err(); err != nil {
			res.Error = err.Error()
			break
		}

		saved, err := s.storeCandidate(ctx, candidate)
		switch {
		case err != nil:
			res.Failed++
			logger.Error().Err(err).Str("url", candidate.URL).Msg("store article failed")
		case saved:
			res.Saved++
		default:
			res.Skipped++
		}
	}

	logger.Info().
		Int("articles_found", res.ArticlesFound).
		Int("saved", res.Saved).
		Int("skipped", res.Skipped).
		Int("discarded", res.Discarded).
		Int("failed", res.Failed).
		Msg("source ingested")
	return res
}

func (s *Service) storeCandidate(ctx context.Context, candidate extract.Candidate) (bool, error) {
	exists, err := s.store.ArticleExistsByURL(ctx, candidate.URL)
	if err != nil {
		return false, fmt.Errorf("lookup article url: %w", err)
	}
	if exists {
		return false, nil
	}

	article := db.Article{
		ID:          uuid.NewString(),
		Title:       candidate.Title,
		Summary:     candidate.Summary,
		Body:        candidate.Body,
		URL:         candidate.URL,
		PublishedAt: candidate.PublishedAt,
		Source:      candidate.SourceID,
		Author:      candidate.Author,
		Language:    candidate.Language,
	}
	if article.Body == "" && s.body != nil {
		body, err := s.body.FetchBody(ctx, article.URL)
		if err != nil {
			s.logger.Debug().Err(err).Str("url", article.URL).Msg("article body fetch failed")
		} else {
			article.Body = body
		}
	}

	inserted, err := s.store.InsertArticle(ctx, article)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	return inserted, nil
}
