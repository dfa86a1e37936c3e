// Package fetcher downloads raw feed documents. A failing source yields an
// empty document carrying its error and never affects the other sources.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/newslink/internal/feeds"
)

const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxBytes    = 5 * 1024 * 1024
	DefaultConcurrency = 4

	defaultUserAgent = "newslink-feed-fetcher/1.0 (+https://horse.fit/newslink)"
)

// ErrBodyTooLarge is returned when a feed body exceeds Options.MaxBytes.
var ErrBodyTooLarge = errors.New("feed body exceeds size limit")

// Options controls HTTP behavior for feed fetching.
type Options struct {
	Timeout     time.Duration
	UserAgent   string
	Concurrency int
	MaxBytes    int64
	HTTPClient  *http.Client
}

// Document is the raw result of fetching one source.
type Document struct {
	Source     feeds.Source
	Body       []byte
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Empty reports whether the document has no content to extract.
func (d Document) Empty() bool {
	return len(d.Body) == 0
}

type Fetcher struct {
	client *http.Client
	opts   Options
	logger zerolog.Logger
}

func New(opts Options, logger zerolog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	opts.UserAgent = strings.TrimSpace(opts.UserAgent)
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}

	return &Fetcher{
		client: client,
		opts:   opts,
		logger: logger,
	}
}

// Fetch retrieves every source concurrently. The result has one document per
// source in input order.
func (f *Fetcher) Fetch(ctx context.Context, sources []feeds.Source) []Document {
	docs := make([]Document, len(sources))
	if len(sources) == 0 {
		return docs
	}

	var group errgroup.Group
	group.SetLimit(f.opts.Concurrency)
	for i, source := range sources {
		group.Go(func() error {
			docs[i] = f.FetchOne(ctx, source)
			return nil
		})
	}
	_ = group.Wait()

	return docs
}

// FetchOne retrieves a single source within the configured timeout.
func (f *Fetcher) FetchOne(ctx context.Context, source feeds.Source) Document {
	started := time.Now()
	doc := Document{Source: source}

	body, status, err := f.get(ctx, source.URL)
	doc.StatusCode = status
	doc.Duration = time.Since(started)
	if err != nil {
		doc.Err = err
		f.logger.Warn().
			Err(err).
			Str("source_id", source.ID).
			Str("url", source.URL).
			Int("status", status).
			Dur("duration", doc.Duration).
			Msg("feed fetch failed")
		return doc
	}

	doc.Body = body
	f.logger.Debug().
		Str("source_id", source.ID).
		Int("bytes", len(body)).
		Dur("duration", doc.Duration).
		Msg("feed fetched")
	return doc
}

func (f *Fetcher) get(ctx context.Context, feedURL string) ([]byte, int, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.opts.MaxBytes {
		return nil, resp.StatusCode, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, f.opts.MaxBytes)
	}

	return body, resp.StatusCode, nil
}
