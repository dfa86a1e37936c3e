package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/newslink/internal/db"
	"horse.fit/newslink/internal/feeds"
	"horse.fit/newslink/internal/ingest"
	"horse.fit/newslink/internal/matching"
	"horse.fit/newslink/internal/pipeline"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type Options struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	PassTimeout        time.Duration
	CORSAllowedOrigins []string
}

// Passes triggers the batch passes. pipeline.Runner implements it.
type Passes interface {
	Sources() []feeds.Source
	RunIngest(ctx context.Context) (ingest.Result, error)
	RunMatch(ctx context.Context) (matching.Result, error)
	RunAll(ctx context.Context) (pipeline.RunResult, error)
}

// Store is the read side used by the listing endpoints. db.Pool implements it.
type Store interface {
	Ping(ctx context.Context) error
	CountArticles(ctx context.Context) (db.ArticleCounts, error)
	ListArticles(ctx context.Context, opts db.ArticleListOptions) ([]db.Article, error)
	GetArticle(ctx context.Context, id string) (*db.Article, error)
	ListArticleMatches(ctx context.Context, articleID string) ([]db.ArticleMatch, error)
	ListNotifications(ctx context.Context, workspaceID string, limit int) ([]db.Notification, error)
}

// BodyReader fetches readable page text for article previews.
type BodyReader interface {
	FetchBody(ctx context.Context, pageURL string) (string, error)
}

type Server struct {
	passes Passes
	store  Store
	reader BodyReader
	logger zerolog.Logger
	opts   Options
}

// NewServer builds the HTTP API. reader may be nil, in which case article
// previews only use the stored body.
func NewServer(passes Passes, store Store, reader BodyReader, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		// Passes fetch every feed synchronously.
		writeTimeout = 5 * time.Minute
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	passTimeout := opts.PassTimeout
	if passTimeout <= 0 {
		passTimeout = writeTimeout
	}
	origins := opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		passes: passes,
		store:  store,
		reader: reader,
		logger: logger,
		opts: Options{
			Host:               host,
			Port:               port,
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			ShutdownTimeout:    shutdownTimeout,
			PassTimeout:        passTimeout,
			CORSAllowedOrigins: origins,
		},
	}
}

// Handler returns the configured echo instance with every route registered.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Info()
			msg := "http request"
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
				msg = "http request failed"
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg(msg)
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/sources", s.handleSources)
	api.POST("/ingest", s.handleIngest)
	api.POST("/match", s.handleMatch)
	api.POST("/run", s.handleRun)
	api.GET("/articles", s.handleArticles)
	api.GET("/articles/:id", s.handleArticleDetail)
	api.GET("/articles/:id/matches", s.handleArticleMatches)
	api.GET("/notifications", s.handleNotifications)

	return e
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.passes == nil || s.store == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("newslink api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("newslink api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if v, ok := he.Message.(string); ok && strings.TrimSpace(v) != "" {
			message = v
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	} else if err != nil {
		s.logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("unhandled handler error")
	}

	if status >= 500 {
		_ = internalError(c, message, nil)
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error().Err(err).Msg("database ping failed")
		return fail(c, http.StatusServiceUnavailable, "Database unavailable", err.Error())
	}

	counts, err := s.store.CountArticles(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("count articles failed")
		return internalError(c, "Failed to count articles", err)
	}

	return success(c, map[string]any{
		"service":  "newslink",
		"database": "ok",
		"sources":  len(s.passes.Sources()),
		"articles": counts,
	})
}

func (s *Server) handleSources(c echo.Context) error {
	return success(c, map[string]any{
		"sources": s.passes.Sources(),
	})
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

func parseBool(raw string) (bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(trimmed)
	if err != nil {
		return false, fmt.Errorf("must be true or false")
	}
	return value, nil
}
