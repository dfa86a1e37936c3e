package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// RawItem is one feed entry before validation and normalization.
type RawItem struct {
	Title       string
	Description string
	Content     string
	Link        string
	GUID        string
	Published   string
	PublishedAt *time.Time
	Author      string
	Language    string
}

// ItemParser turns a raw feed document into items. Implementations must not
// fail on a single malformed item; only an unreadable document is an error.
type ItemParser interface {
	ParseItems(doc string) ([]RawItem, error)
}

// GofeedParser parses RSS, Atom and JSON Feed documents.
type GofeedParser struct{}

func (GofeedParser) ParseItems(doc string) ([]RawItem, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, fmt.Errorf("feed document is empty")
	}

	// gofeed.Parser keeps per-parse state, so each call gets its own.
	feed, err := gofeed.NewParser().ParseString(doc)
	if err != nil {
		if items, ok := recoverItems(doc); ok {
			return items, nil
		}
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]RawItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		items = append(items, fromGofeedItem(feed, item))
	}
	return items, nil
}

func fromGofeedItem(feed *gofeed.Feed, item *gofeed.Item) RawItem {
	raw := RawItem{
		Title:       item.Title,
		Description: item.Description,
		Content:     item.Content,
		Link:        item.Link,
		GUID:        item.GUID,
		Published:   item.Published,
		Language:    feed.Language,
	}

	if raw.Link == "" {
		for _, link := range item.Links {
			if strings.TrimSpace(link) != "" {
				raw.Link = link
				break
			}
		}
	}

	switch {
	case item.PublishedParsed != nil:
		published := item.PublishedParsed.UTC()
		raw.PublishedAt = &published
	case item.UpdatedParsed != nil:
		updated := item.UpdatedParsed.UTC()
		raw.PublishedAt = &updated
	}
	if raw.Published == "" {
		raw.Published = item.Updated
	}

	if item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		raw.Author = item.Author.Name
	} else {
		for _, author := range item.Authors {
			if author != nil && strings.TrimSpace(author.Name) != "" {
				raw.Author = author.Name
				break
			}
		}
	}
	if raw.Author == "" && item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		raw.Author = item.DublinCoreExt.Creator[0]
	}

	return raw
}
