package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	RosterBackendPostgres = "postgres"
	RosterBackendSupabase = "supabase"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMinConns  int32  `envconfig:"NL_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"NL_DB_MAX_CONNS" default:"8"`

	SupabaseURL        string `envconfig:"SUPABASE_URL" default:""`
	SupabaseKey        string `envconfig:"SUPABASE_KEY" default:""`
	SupabaseDBPassword string `envconfig:"SUPABASE_DB_PASSWORD" default:""`
	RosterBackend      string `envconfig:"ROSTER_BACKEND" default:"postgres"`

	FeedSourcesFile  string        `envconfig:"FEED_SOURCES_FILE" default:""`
	FeedFetchTimeout time.Duration `envconfig:"FEED_FETCH_TIMEOUT" default:"15s"`
	FeedUserAgent    string        `envconfig:"FEED_USER_AGENT" default:"newslink-feed-fetcher/1.0 (+https://horse.fit/newslink)"`
	FeedConcurrency  int           `envconfig:"FEED_CONCURRENCY" default:"4"`
	FeedMaxBytes     int64         `envconfig:"FEED_MAX_BYTES" default:"5242880"`
	FetchArticleBody bool          `envconfig:"FETCH_ARTICLE_BODY" default:"false"`

	MatchBatchLimit int    `envconfig:"MATCH_BATCH_LIMIT" default:"50"`
	RunLockDir      string `envconfig:"RUN_LOCK_DIR" default:""`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.resolveDatabaseURL(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required (or SUPABASE_URL + SUPABASE_DB_PASSWORD)")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("NL_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("NL_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("NL_DB_MIN_CONNS (%d) cannot exceed NL_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	switch c.NormalizedRosterBackend() {
	case RosterBackendPostgres:
	case RosterBackendSupabase:
		if strings.TrimSpace(c.SupabaseURL) == "" || strings.TrimSpace(c.SupabaseKey) == "" {
			return fmt.Errorf("ROSTER_BACKEND=supabase requires SUPABASE_URL and SUPABASE_KEY")
		}
	default:
		return fmt.Errorf("ROSTER_BACKEND must be %q or %q", RosterBackendPostgres, RosterBackendSupabase)
	}

	if c.FeedFetchTimeout <= 0 {
		return fmt.Errorf("FEED_FETCH_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(c.FeedUserAgent) == "" {
		return fmt.Errorf("FEED_USER_AGENT is required")
	}
	if c.FeedConcurrency < 1 {
		return fmt.Errorf("FEED_CONCURRENCY must be >= 1")
	}
	if c.FeedMaxBytes < 1024 {
		return fmt.Errorf("FEED_MAX_BYTES must be >= 1024")
	}
	if c.MatchBatchLimit < 1 {
		return fmt.Errorf("MATCH_BATCH_LIMIT must be >= 1")
	}
	return nil
}

func (c *Config) NormalizedRosterBackend() string {
	if c == nil {
		return RosterBackendPostgres
	}
	backend := strings.ToLower(strings.TrimSpace(c.RosterBackend))
	if backend == "" {
		return RosterBackendPostgres
	}
	return backend
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}

// resolveDatabaseURL derives DATABASE_URL from the Supabase project URL and
// database password when it is not set explicitly.
func (c *Config) resolveDatabaseURL() error {
	if strings.TrimSpace(c.DatabaseURL) != "" {
		return nil
	}
	if strings.TrimSpace(c.SupabaseURL) == "" || strings.TrimSpace(c.SupabaseDBPassword) == "" {
		return nil
	}
	dsn, err := SupabaseDSN(c.SupabaseURL, c.SupabaseDBPassword)
	if err != nil {
		return err
	}
	c.DatabaseURL = dsn
	return nil
}

// SupabaseDSN builds the direct Postgres connection string for a Supabase
// project URL of the form https://<project-ref>.supabase.co.
func SupabaseDSN(projectURL, password string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(projectURL))
	if err != nil {
		return "", fmt.Errorf("parse SUPABASE_URL: %w", err)
	}
	parts := strings.Split(parsed.Hostname(), ".")
	if len(parts) < 2 || parts[0] == "" {
		return "", fmt.Errorf("SUPABASE_URL must look like https://<project-ref>.supabase.co")
	}
	if strings.TrimSpace(password) == "" {
		return "", fmt.Errorf("SUPABASE_DB_PASSWORD is required")
	}

	return fmt.Sprintf(
		"postgresql://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(password),
		parts[0],
	), nil
}
