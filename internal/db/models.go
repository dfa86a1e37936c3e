package db

import (
	"time"

	"gorm.io/datatypes"
)

// Entity types stored in article_matches.entity_type and notifications.entity_type.
const (
	EntityTypeContact = "contact"
	EntityTypeCompany = "company"
	EntityTypeProject = "project"
)

// Match types stored in article_matches.match_type.
const (
	MatchTypeName    = "name_mention"
	MatchTypeCompany = "company_mention"
	MatchTypeTitle   = "title_mention"
)

// ActionTypeMatch is the notifications.action_type written by the consolidator.
const ActionTypeMatch = "match"

// Article maps newslink.articles.
type Article struct {
	ID             string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title          string    `gorm:"column:title;type:text;not null" json:"title"`
	Summary        string    `gorm:"column:summary;type:text;not null;default:''" json:"summary"`
	Body           string    `gorm:"column:body;type:text;not null;default:''" json:"-"`
	URL            string    `gorm:"column:url;type:text;not null;uniqueIndex:ux_articles_url" json:"url"`
	PublishedAt    time.Time `gorm:"column:published_at;type:timestamptz;not null" json:"published_at"`
	Source         string    `gorm:"column:source;type:text;not null" json:"source"`
	Author         *string   `gorm:"column:author;type:text" json:"author"`
	Language       string    `gorm:"column:language;type:text;not null;default:''" json:"language,omitempty"`
	IsProcessed    bool      `gorm:"column:is_processed;not null;default:false" json:"is_processed"`
	RelevanceScore int       `gorm:"column:relevance_score;type:integer;not null;default:0" json:"relevance_score"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()" json:"updated_at"`
}

func (Article) TableName() string { return "newslink.articles" }

// Contact maps newslink.contacts. Rows are owned by the workspace application.
type Contact struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	WorkspaceID string    `gorm:"column:workspace_id;type:uuid;not null;index" json:"workspace_id"`
	FirstName   string    `gorm:"column:first_name;type:text;not null;default:''" json:"first_name"`
	LastName    string    `gorm:"column:last_name;type:text;not null;default:''" json:"last_name"`
	CompanyName *string   `gorm:"column:company_name;type:text" json:"company_name"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"-"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()" json:"-"`
}

func (Contact) TableName() string { return "newslink.contacts" }

// Company maps newslink.companies.
type Company struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	WorkspaceID string    `gorm:"column:workspace_id;type:uuid;not null;index" json:"workspace_id"`
	Name        string    `gorm:"column:name;type:text;not null" json:"name"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"-"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()" json:"-"`
}

func (Company) TableName() string { return "newslink.companies" }

// Project maps newslink.projects.
type Project struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	WorkspaceID string    `gorm:"column:workspace_id;type:uuid;not null;index" json:"workspace_id"`
	Title       string    `gorm:"column:title;type:text;not null" json:"title"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"-"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()" json:"-"`
}

func (Project) TableName() string { return "newslink.projects" }

// ArticleMatch maps newslink.article_matches.
type ArticleMatch struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	ArticleID       string    `gorm:"column:article_id;type:uuid;not null;uniqueIndex:ux_article_matches_identity,priority:1" json:"article_id"`
	EntityType      string    `gorm:"column:entity_type;type:text;not null;uniqueIndex:ux_article_matches_identity,priority:2" json:"entity_type"`
	EntityID        string    `gorm:"column:entity_id;type:uuid;not null;uniqueIndex:ux_article_matches_identity,priority:3" json:"entity_id"`
	MatchType       string    `gorm:"column:match_type;type:text;not null;uniqueIndex:ux_article_matches_identity,priority:4" json:"match_type"`
	WorkspaceID     string    `gorm:"column:workspace_id;type:uuid;not null" json:"workspace_id"`
	MatchConfidence float64   `gorm:"column:match_confidence;type:double precision;not null" json:"match_confidence"`
	MatchedText     string    `gorm:"column:matched_text;type:text;not null" json:"matched_text"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
}

func (ArticleMatch) TableName() string { return "newslink.article_matches" }

// Notification maps newslink.notifications. A NULL user_id marks the shared
// notification; post_automigrate.sql keeps it unique per workspace and entity.
type Notification struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	WorkspaceID string         `gorm:"column:workspace_id;type:uuid;not null" json:"workspace_id"`
	UserID      *string        `gorm:"column:user_id;type:uuid" json:"user_id"`
	Title       string         `gorm:"column:title;type:text;not null" json:"title"`
	Message     string         `gorm:"column:message;type:text;not null" json:"message"`
	ActionType  string         `gorm:"column:action_type;type:text;not null;default:match" json:"action_type"`
	EntityType  string         `gorm:"column:entity_type;type:text;not null" json:"entity_type"`
	EntityID    string         `gorm:"column:entity_id;type:uuid;not null" json:"entity_id"`
	EntityTitle string         `gorm:"column:entity_title;type:text;not null;default:''" json:"entity_title"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb;not null;default:'{}'" json:"metadata"`
	IsRead      bool           `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt   time.Time      `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;type:timestamptz;not null;default:now()" json:"updated_at"`
}

func (Notification) TableName() string { return "newslink.notifications" }

func autoMigrateModels() []any {
	return []any{
		&Article{},
		&Contact{},
		&Company{},
		&Project{},
		&ArticleMatch{},
		&Notification{},
	}
}
