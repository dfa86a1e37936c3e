// Package extract turns raw feed documents into candidate articles.
package extract

import (
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	"horse.fit/newslink/internal/langdetect"
	"horse.fit/newslink/internal/reader"
	"horse.fit/newslink/internal/textnorm"
)

const summaryMaxChars = 500

// Discard reasons reported in Extraction.Discarded.
const (
	DiscardMissingTitle = "missing_title"
	DiscardMissingLink  = "missing_link"
	DiscardMissingDate  = "missing_date"
	DiscardInvalidDate  = "invalid_date"
)

// Candidate is an extracted article that has not been persisted yet.
type Candidate struct {
	SourceID    string
	Title       string
	Summary     string
	Body        string
	URL         string
	Author      *string
	PublishedAt time.Time
	Language    string
}

// Extraction is the per-document result. Found counts every item in the
// document and Usable counts the items that became candidates.
type Extraction struct {
	SourceID  string
	Articles  []Candidate
	Found     int
	Usable    int
	Discarded map[string]int
	Err       error
}

type Extractor struct {
	parser    ItemParser
	languages langdetect.Chain
	logger    zerolog.Logger
}

// NewExtractor builds an extractor. A nil parser means GofeedParser; a nil
// detector leaves language empty unless the feed declares one.
func NewExtractor(parser ItemParser, detector langdetect.Detector, logger zerolog.Logger) *Extractor {
	if parser == nil {
		parser = GofeedParser{}
	}
	return &Extractor{
		parser:    parser,
		languages: langdetect.Chain{Detector: detector},
		logger:    logger,
	}
}

// Extract parses doc and returns candidates newest first. A document that
// cannot be parsed yields zero candidates and a non-nil Err.
func (e *Extractor) Extract(sourceID string, doc []byte) Extraction {
	result := Extraction{
		SourceID:  sourceID,
		Discarded: map[string]int{},
	}

	items, err := e.parser.ParseItems(string(doc))
	if err != nil {
		result.Err = err
		e.logger.Warn().Err(err).Str("source_id", sourceID).Msg("feed document could not be parsed")
		return result
	}

	result.Found = len(items)
	result.Articles = make([]Candidate, 0, len(items))
	for i, item := range items {
		candidate, reason := e.buildCandidate(sourceID, item)
		if reason != "" {
			result.Discarded[reason]++
			e.logger.Debug().
				Str("source_id", sourceID).
				Int("item_index", i).
				Str("reason", reason).
				Msg("feed item discarded")
			continue
		}
		result.Articles = append(result.Articles, candidate)
	}
	result.Usable = len(result.Articles)

	sort.SliceStable(result.Articles, func(i, j int) bool {
		return result.Articles[i].PublishedAt.After(result.Articles[j].PublishedAt)
	})

	return result
}

func (e *Extractor) buildCandidate(sourceID string, item RawItem) (Candidate, string) {
	title := textnorm.Normalize(item.Title)
	if title == "" {
		return Candidate{}, DiscardMissingTitle
	}

	link := resolveLink(item)
	if link == "" {
		return Candidate{}, DiscardMissingLink
	}

	publishedAt, reason := resolvePublishedAt(item)
	if reason != "" {
		return Candidate{}, reason
	}

	body := textnorm.Normalize(item.Content)
	summary := textnorm.Normalize(item.Description)
	if summary == "" && body != "" {
		summary, _ = reader.TruncateText(body, summaryMaxChars)
	}

	candidate := Candidate{
		SourceID:    sourceID,
		Title:       title,
		Summary:     summary,
		Body:        body,
		URL:         link,
		PublishedAt: publishedAt,
		Language:    e.languages.Resolve(item.Language, title+". "+summary),
	}
	if author := textnorm.Normalize(item.Author); author != "" {
		candidate.Author = &author
	}
	return candidate, ""
}

func resolveLink(item RawItem) string {
	for _, raw := range []string{item.Link, item.GUID} {
		if !isAbsoluteHTTPURL(raw) {
			continue
		}
		if canonical, err := CanonicalURL(raw); err == nil {
			return canonical
		}
	}
	return ""
}

func resolvePublishedAt(item RawItem) (time.Time, string) {
	if item.PublishedAt != nil && !item.PublishedAt.IsZero() {
		return item.PublishedAt.UTC(), ""
	}

	raw := strings.TrimSpace(item.Published)
	if raw == "" {
		return time.Time{}, DiscardMissingDate
	}
	parsed, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, DiscardInvalidDate
	}
	return parsed.UTC(), ""
}
