// Package notify keeps one shared notification per workspace and matched
// contact, updating it in place as new matches arrive.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"horse.fit/newslink/internal/db"
)

// Store is the persistence the consolidator needs.
type Store interface {
	CountEntityMatches(ctx context.Context, entityType, entityID string) (int64, error)
	UpsertSharedNotification(ctx context.Context, notification db.Notification) error
}

// ContactMatch is a newly persisted contact match from a matching pass.
type ContactMatch struct {
	WorkspaceID  string
	ContactID    string
	ContactName  string
	ArticleID    string
	ArticleTitle string
	PublishedAt  time.Time
}

// Metadata is stored in notifications.metadata.
type Metadata struct {
	ContactID          string `json:"contact_id"`
	ContactName        string `json:"contact_name"`
	TotalMatches       int64  `json:"total_matches"`
	LatestArticleID    string `json:"latest_article_id"`
	LatestArticleTitle string `json:"latest_article_title,omitempty"`
	NewMatches         int    `json:"new_matches"`
}

type Result struct {
	Upserted int `json:"upserted"`
	Failed   int `json:"failed"`
}

type Consolidator struct {
	store  Store
	logger zerolog.Logger
}

func NewConsolidator(store Store, logger zerolog.Logger) *Consolidator {
	return &Consolidator{store: store, logger: logger}
}

type contactKey struct {
	workspaceID string
	contactID   string
}

type contactGroup struct {
	key    contactKey
	name   string
	latest ContactMatch
	count  int
}

// Consolidate upserts one shared notification per (workspace, contact) found
// in matches. A failure for one contact is logged and counted; the others
// still run.
func (c *Consolidator) Consolidate(ctx context.Context, matches []ContactMatch) Result {
	var result Result
	if c == nil || c.store == nil || len(matches) == 0 {
		return result
	}

	for _, group := range groupByContact(matches) {
		logger := c.logger.With().
			Str("workspace_id", group.key.workspaceID).
			Str("entity_id", group.key.contactID).
			Logger()

		if err := c.upsert(ctx, group); err != nil {
			result.Failed++
			logger.Error().Err(err).Msg("notification upsert failed")
			continue
		}
		result.Upserted++
	}

	c.logger.Info().
		Int("upserted", result.Upserted).
		Int("failed", result.Failed).
		Msg("notifications consolidated")
	return result
}

func (c *Consolidator) upsert(ctx context.Context, group contactGroup) error {
	total, err := c.store.CountEntityMatches(ctx, db.EntityTypeContact, group.key.contactID)
	if err != nil {
		return fmt.Errorf("count contact matches: %w", err)
	}
	if total < int64(group.count) {
		total = int64(group.count)
	}

	metadata := Metadata{
		ContactID:          group.key.contactID,
		ContactName:        group.name,
		TotalMatches:       total,
		LatestArticleID:    group.latest.ArticleID,
		LatestArticleTitle: group.latest.ArticleTitle,
		NewMatches:         group.count,
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode notification metadata: %w", err)
	}

	return c.store.UpsertSharedNotification(ctx, db.Notification{
		WorkspaceID: group.key.workspaceID,
		Title:       notificationTitle(group.name),
		Message:     notificationMessage(group, total),
		ActionType:  db.ActionTypeMatch,
		EntityType:  db.EntityTypeContact,
		EntityID:    group.key.contactID,
		EntityTitle: group.name,
		Metadata:    datatypes.JSON(raw),
	})
}

// groupByContact keeps first-seen order. The latest article is the one
// published last; ties go to the later match.
func groupByContact(matches []ContactMatch) []contactGroup {
	index := make(map[contactKey]int, len(matches))
	groups := make([]contactGroup, 0, len(matches))

	for _, match := range matches {
		key := contactKey{workspaceID: match.WorkspaceID, contactID: match.ContactID}
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, contactGroup{key: key, name: match.ContactName, latest: match, count: 1})
			continue
		}

		group := &groups[i]
		group.count++
		if !match.PublishedAt.Before(group.latest.PublishedAt) {
			group.latest = match
		}
		if group.name == "" {
			group.name = match.ContactName
		}
	}
	return groups
}

func notificationTitle(name string) string {
	if name == "" {
		return "Contact mentioned in the news"
	}
	return name + " mentioned in the news"
}

func notificationMessage(group contactGroup, total int64) string {
	name := group.name
	if name == "" {
		name = "A contact"
	}

	totalText := fmt.Sprintf("%d total mentions", total)
	if total == 1 {
		totalText = "1 total mention"
	}

	if group.count == 1 {
		return fmt.Sprintf("%s was mentioned in %q (%s).", name, group.latest.ArticleTitle, totalText)
	}
	return fmt.Sprintf("%s was mentioned in %d new articles, most recently %q (%s).",
		name, group.count, group.latest.ArticleTitle, totalText)
}
