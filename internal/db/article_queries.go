package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"horse.fit/newslink/internal/globaltime"
)

// ArticleListOptions controls article listing queries.
type ArticleListOptions struct {
	Limit           int
	UnprocessedOnly bool
	Source          string
}

// ArticleCounts is used by the health command and endpoint.
type ArticleCounts struct {
	Total       int64 `json:"total"`
	Unprocessed int64 `json:"unprocessed"`
}

const articleColumns = `
	a.id::text,
	a.title,
	a.summary,
	a.body,
	a.url,
	a.published_at,
	a.source,
	a.author,
	a.language,
	a.is_processed,
	a.relevance_score,
	a.created_at,
	a.updated_at`

// ArticleExistsByURL reports whether an article with the canonical url is stored.
func (p *Pool) ArticleExistsByURL(ctx context.Context, url string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM newslink.articles WHERE url = $1)`

	var exists bool
	if err := p.QueryRow(ctx, q, strings.TrimSpace(url)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check article url: %w", err)
	}
	return exists, nil
}

// InsertArticle stores a new unprocessed article. It returns false when the
// url is already stored, including a conflict raced in by a concurrent run.
func (p *Pool) InsertArticle(ctx context.Context, article Article) (bool, error) {
	if strings.TrimSpace(article.ID) == "" {
		return false, fmt.Errorf("article id is required")
	}
	if strings.TrimSpace(article.URL) == "" {
		return false, fmt.Errorf("article url is required")
	}

	now := globaltime.UTC()
	const q = `
INSERT INTO newslink.articles (
	id,
	title,
	summary,
	body,
	url,
	published_at,
	source,
	author,
	language,
	is_processed,
	relevance_score,
	created_at,
	updated_at
)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, false, 0, $10, $10)
ON CONFLICT (url) DO NOTHING
`

	affected, err := p.Exec(ctx, q,
		article.ID,
		article.Title,
		article.Summary,
		article.Body,
		article.URL,
		article.PublishedAt.UTC(),
		article.Source,
		article.Author,
		article.Language,
		now,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert article: %w", err)
	}
	return affected > 0, nil
}

// ListArticles lists articles newest first.
func (p *Pool) ListArticles(ctx context.Context, opts ArticleListOptions) ([]Article, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	q := `
SELECT` + articleColumns + `
FROM newslink.articles a
WHERE ($1 = false OR a.is_processed = false)
  AND ($2 = '' OR a.source = $2)
ORDER BY a.published_at DESC, a.id
LIMIT $3
`

	rows, err := p.Query(ctx, q, opts.UnprocessedOnly, strings.TrimSpace(opts.Source), opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	items := make([]Article, 0, opts.Limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}
	return items, nil
}

// ListUnprocessedArticles returns the matching backlog, newest first.
func (p *Pool) ListUnprocessedArticles(ctx context.Context, limit int) ([]Article, error) {
	return p.ListArticles(ctx, ArticleListOptions{Limit: limit, UnprocessedOnly: true})
}

// GetArticle returns ErrNoRows when id does not exist.
func (p *Pool) GetArticle(ctx context.Context, id string) (*Article, error) {
	q := `
SELECT` + articleColumns + `
FROM newslink.articles a
WHERE a.id = $1::uuid
`
	rows, err := p.Query(ctx, q, strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("query article: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate article rows: %w", err)
		}
		return nil, ErrNoRows
	}
	article, err := scanArticle(rows)
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// CountArticles returns total and unprocessed article counts.
func (p *Pool) CountArticles(ctx context.Context) (ArticleCounts, error) {
	const q = `
SELECT
	COUNT(*)::BIGINT,
	COUNT(*) FILTER (WHERE is_processed = false)::BIGINT
FROM newslink.articles
`
	var counts ArticleCounts
	if err := p.QueryRow(ctx, q).Scan(&counts.Total, &counts.Unprocessed); err != nil {
		return ArticleCounts{}, fmt.Errorf("count articles: %w", err)
	}
	return counts, nil
}

func scanArticle(rows *sql.Rows) (Article, error) {
	var (
		article     Article
		publishedAt time.Time
	)
	if err := rows.Scan(
		&article.ID,
		&article.Title,
		&article.Summary,
		&article.Body,
		&article.URL,
		&publishedAt,
		&article.Source,
		&article.Author,
		&article.Language,
		&article.IsProcessed,
		&article.RelevanceScore,
		&article.CreatedAt,
		&article.UpdatedAt,
	); err != nil {
		return Article{}, fmt.Errorf("scan article row: %w", err)
	}
	article.PublishedAt = publishedAt.UTC()
	return article, nil
}
