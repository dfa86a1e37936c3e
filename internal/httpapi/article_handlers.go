package httpapi

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"horse.fit/newslink/internal/db"
	"horse.fit/newslink/internal/reader"
)

const (
	defaultPreviewMaxChars = 1000
	minPreviewMaxChars     = 200
	maxPreviewMaxChars     = 4000
)

type articleDetail struct {
	db.Article
	PreviewText   string  `json:"preview_text"`
	PreviewSource string  `json:"preview_source"`
	CharCount     int     `json:"char_count"`
	Truncated     bool    `json:"truncated"`
	PreviewError  *string `json:"preview_error,omitempty"`
}

func (s *Server) handleArticles(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	unprocessed, err := parseBool(c.QueryParam("unprocessed"))
	if err != nil {
		return failValidation(c, map[string]string{"unprocessed": err.Error()})
	}

	opts := db.ArticleListOptions{
		Limit:           limit,
		UnprocessedOnly: unprocessed,
		Source:          strings.TrimSpace(c.QueryParam("source")),
	}
	items, err := s.store.ListArticles(c.Request().Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("list articles failed")
		return internalError(c, "Failed to load articles", err)
	}

	return success(c, map[string]any{
		"articles": items,
		"count":    len(items),
		"limit":    limit,
	})
}

func (s *Server) handleArticleDetail(c echo.Context) error {
	articleID, ok, err := articleIDParam(c)
	if !ok {
		return err
	}
	maxChars, err := parsePositiveInt(c.QueryParam("max_chars"), defaultPreviewMaxChars, minPreviewMaxChars, maxPreviewMaxChars)
	if err != nil {
		return failValidation(c, map[string]string{"max_chars": err.Error()})
	}

	article, err := s.store.GetArticle(c.Request().Context(), articleID)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Article not found")
		}
		s.logger.Error().Err(err).Str("article_id", articleID).Msg("get article failed")
		return internalError(c, "Failed to load article", err)
	}

	text, source, previewErr := s.previewText(c.Request().Context(), article)
	preview, truncated := reader.TruncateText(text, maxChars)
	detail := articleDetail{
		Article:       *article,
		PreviewText:   preview,
		PreviewSource: source,
		CharCount:     utf8.RuneCountInString(preview),
		Truncated:     truncated,
	}
	if previewErr != nil {
		msg := previewErr.Error()
		detail.PreviewError = &msg
		s.logger.Warn().
			Err(previewErr).
			Str("article_id", articleID).
			Str("source", source).
			Msg("reader preview fallback used")
	}

	return success(c, map[string]any{"article": detail})
}

// previewText prefers the stored body, then the live page, then the summary.
func (s *Server) previewText(ctx context.Context, article *db.Article) (string, string, error) {
	if body := strings.TrimSpace(article.Body); body != "" {
		return body, "body", nil
	}

	var readErr error
	if s.reader != nil && article.URL != "" {
		text, err := s.reader.FetchBody(ctx, article.URL)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, "reader", nil
		}
		readErr = err
	}

	if summary := strings.TrimSpace(article.Summary); summary != "" {
		return summary, "summary", readErr
	}
	return "", "none", readErr
}

func (s *Server) handleArticleMatches(c echo.Context) error {
	articleID, ok, err := articleIDParam(c)
	if !ok {
		return err
	}

	ctx := c.Request().Context()
	if _, err := s.store.GetArticle(ctx, articleID); err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Article not found")
		}
		s.logger.Error().Err(err).Str("article_id", articleID).Msg("get article failed")
		return internalError(c, "Failed to load article", err)
	}

	matches, err := s.store.ListArticleMatches(ctx, articleID)
	if err != nil {
		s.logger.Error().Err(err).Str("article_id", articleID).Msg("list article matches failed")
		return internalError(c, "Failed to load matches", err)
	}

	return success(c, map[string]any{
		"article_id": articleID,
		"matches":    matches,
	})
}

func (s *Server) handleNotifications(c echo.Context) error {
	workspaceID := strings.TrimSpace(c.QueryParam("workspace_id"))
	if workspaceID == "" {
		return failValidation(c, map[string]string{"workspace_id": "is required"})
	}
	if _, err := uuid.Parse(workspaceID); err != nil {
		return failValidation(c, map[string]string{"workspace_id": "must be a UUID"})
	}
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	items, err := s.store.ListNotifications(c.Request().Context(), workspaceID, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("workspace_id", workspaceID).Msg("list notifications failed")
		return internalError(c, "Failed to load notifications", err)
	}

	return success(c, map[string]any{
		"workspace_id":  workspaceID,
		"notifications": items,
	})
}

// articleIDParam returns ok=false together with the already-written
// validation response when the id is not a UUID.
func articleIDParam(c echo.Context) (string, bool, error) {
	articleID := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(articleID); err != nil {
		return "", false, failValidation(c, map[string]string{"id": "must be a UUID"})
	}
	return articleID, true, nil
}
