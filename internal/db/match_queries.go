package db

import (
	"context"
	"fmt"
	"strings"

	"horse.fit/newslink/internal/globaltime"
)

// SaveArticleMatches inserts the matches found for one article and marks it
// processed with relevance_score = len(matches). Both happen in one
// transaction so a failed article stays in the backlog untouched.
func (p *Pool) SaveArticleMatches(ctx context.Context, articleID string, matches []ArticleMatch) error {
	articleID = strings.TrimSpace(articleID)
	if articleID == "" {
		return fmt.Errorf("article id is required")
	}

	now := globaltime.UTC()
	return p.inTx(ctx, func(tx conn) error {
		for _, match := range matches {
			if _, err := tx.Exec(ctx, insertMatchQuery,
				articleID,
				match.EntityType,
				match.EntityID,
				match.MatchType,
				match.WorkspaceID,
				match.MatchConfidence,
				match.MatchedText,
				now,
			); err != nil {
				return fmt.Errorf("insert %s match %s: %w", match.EntityType, match.EntityID, err)
			}
		}

		affected, err := tx.Exec(ctx, markProcessedQuery, articleID, len(matches), now)
		if err != nil {
			return fmt.Errorf("mark article processed: %w", err)
		}
		if affected == 0 {
			return ErrNoRows
		}
		return nil
	})
}

const insertMatchQuery = `
INSERT INTO newslink.article_matches (
	article_id,
	entity_type,
	entity_id,
	match_type,
	workspace_id,
	match_confidence,
	matched_text,
	created_at
)
VALUES ($1::uuid, $2, $3::uuid, $4, $5::uuid, $6, $7, $8)
ON CONFLICT (article_id, entity_type, entity_id, match_type) DO NOTHING
`

const markProcessedQuery = `
UPDATE newslink.articles
SET
	is_processed = true,
	relevance_score = $2,
	updated_at = $3
WHERE id = $1::uuid
`

// ListArticleMatches returns the matches stored for an article, best first.
func (p *Pool) ListArticleMatches(ctx context.Context, articleID string) ([]ArticleMatch, error) {
	const q = `
SELECT
	m.id,
	m.article_id::text,
	m.entity_type,
	m.entity_id::text,
	m.match_type,
	m.workspace_id::text,
	m.match_confidence,
	m.matched_text,
	m.created_at
FROM newslink.article_matches m
WHERE m.article_id = $1::uuid
ORDER BY m.match_confidence DESC, m.id
`
	rows, err := p.Query(ctx, q, strings.TrimSpace(articleID))
	if err != nil {
		return nil, fmt.Errorf("query article matches: %w", err)
	}
	defer rows.Close()

	items := make([]ArticleMatch, 0, 8)
	for rows.Next() {
		var row ArticleMatch
		if err := rows.Scan(
			&row.ID,
			&row.ArticleID,
			&row.EntityType,
			&row.EntityID,
			&row.MatchType,
			&row.WorkspaceID,
			&row.MatchConfidence,
			&row.MatchedText,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan article match row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article match rows: %w", err)
	}
	return items, nil
}

// CountEntityMatches counts every stored match for one entity across all runs.
func (p *Pool) CountEntityMatches(ctx context.Context, entityType, entityID string) (int64, error) {
	const q = `
SELECT COUNT(*)::BIGINT
FROM newslink.article_matches
WHERE entity_type = $1
  AND entity_id = $2::uuid
`
	var total int64
	if err := p.QueryRow(ctx, q, entityType, strings.TrimSpace(entityID)).Scan(&total); err != nil {
		return 0, fmt.Errorf("count entity matches: %w", err)
	}
	return total, nil
}
