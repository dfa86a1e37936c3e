// Package matching links unprocessed articles to the contacts, companies and
// projects of every workspace and scores each link.
package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newslink/internal/db"
	"horse.fit/newslink/internal/globaltime"
	"horse.fit/newslink/internal/notify"
)

const DefaultBatchLimit = 50

// notifyTimeout bounds consolidation once the batch is committed.
const notifyTimeout = 30 * time.Second

// ErrRosterUnavailable is returned when the entity roster cannot be loaded.
// The pass writes nothing in that case.
var ErrRosterUnavailable = errors.New("entity roster unavailable")

type ArticleRepository interface {
	ListUnprocessedArticles(ctx context.Context, limit int) ([]db.Article, error)
	SaveArticleMatches(ctx context.Context, articleID string, matches []db.ArticleMatch) error
}

type EntityRepository interface {
	LoadRoster(ctx context.Context) (db.Roster, error)
}

type Notifier interface {
	Consolidate(ctx context.Context, matches []notify.ContactMatch) notify.Result
}

// MatchCounts counts persisted candidates by entity type.
type MatchCounts struct {
	Contacts  int `json:"contacts"`
	Companies int `json:"companies"`
	Projects  int `json:"projects"`
}

func (c MatchCounts) Total() int {
	return c.Contacts + c.Companies + c.Projects
}

func (c *MatchCounts) add(entityType string) {
	switch entityType {
	case db.EntityTypeContact:
		c.Contacts++
	case db.EntityTypeCompany:
		c.Companies++
	case db.EntityTypeProject:
		c.Projects++
	}
}

type Result struct {
	Processed     int           `json:"processed"`
	Failed        int           `json:"failed"`
	RosterSize    int           `json:"roster_size"`
	Matches       MatchCounts   `json:"matches"`
	Notifications notify.Result `json:"notifications"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
}

type Options struct {
	BatchLimit int
	Thresholds Thresholds
}

type Service struct {
	articles ArticleRepository
	entities EntityRepository
	notifier Notifier
	opts     Options
	logger   zerolog.Logger
}

// NewService wires the matching pass. A zero Options uses the default batch
// limit and thresholds; notifier may be nil.
func NewService(articles ArticleRepository, entities EntityRepository, notifier Notifier, opts Options, logger zerolog.Logger) *Service {
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = DefaultBatchLimit
	}
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	return &Service{
		articles: articles,
		entities: entities,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
	}
}

// Run matches one batch of the unprocessed backlog. Articles whose matches
// cannot be stored stay unprocessed for the next run.
func (s *Service) Run(ctx context.Context) (Result, error) {
	if s == nil || s.articles == nil || s.entities == nil {
		return Result{}, fmt.Errorf("matching service is not initialized")
	}

	result := Result{StartedAt: globaltime.UTC()}

	roster, err := s.entities.LoadRoster(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRosterUnavailable, err)
	}
	result.RosterSize = roster.Size()

	backlog, err := s.articles.ListUnprocessedArticles(ctx, s.opts.BatchLimit)
	if err != nil {
		return Result{}, fmt.Errorf("load unprocessed articles: %w", err)
	}

	matcher := NewMatcher(roster, s.opts.Thresholds)
	var contactMatches []notify.ContactMatch

	for _, article := range backlog {
		candidates := matcher.Match(article)

		records := make([]db.ArticleMatch, 0, len(candidates))
		for _, candidate := range candidates {
			records = append(records, candidate.Record())
		}

		if err := s.articles.SaveArticleMatches(ctx, article.ID, records); err != nil {
			result.Failed++
			s.logger.Error().
				Err(err).
				Str("article_id", article.ID).
				Int("candidates", len(candidates)).
				Msg("persist article matches failed")
			continue
		}

		result.Processed++
		for _, candidate := range candidates {
			result.Matches.add(candidate.EntityType)
			if candidate.EntityType != db.EntityTypeContact {
				continue
			}
			contactMatches = append(contactMatches, notify.ContactMatch{
				WorkspaceID:  candidate.WorkspaceID,
				ContactID:    candidate.EntityID,
				ContactName:  candidate.EntityName,
				ArticleID:    article.ID,
				ArticleTitle: article.Title,
				PublishedAt:  article.PublishedAt,
			})
		}

		if len(candidates) > 0 {
			s.logger.Debug().
				Str("article_id", article.ID).
				Int("matches", len(candidates)).
				Msg("article matched")
		}
	}

	if s.notifier != nil && len(contactMatches) > 0 {
		// Committed articles are never revisited, so their notifications must
		// not depend on the caller's context surviving the batch.
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		result.Notifications = s.notifier.Consolidate(notifyCtx, contactMatches)
		cancel()
	}

	result.FinishedAt = globaltime.UTC()
	s.logger.Info().
		Int("backlog", len(backlog)).
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Int("roster_size", result.RosterSize).
		Int("contact_matches", result.Matches.Contacts).
		Int("company_matches", result.Matches.Companies).
		Int("project_matches", result.Matches.Projects).
		Msg("matching pass finished")

	return result, nil
}
