package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newslink/internal/db"
	"horse.fit/newslink/internal/feeds"
	"horse.fit/newslink/internal/globaltime"
	"horse.fit/newslink/internal/ingest"
	"horse.fit/newslink/internal/matching"
	"horse.fit/newslink/internal/pipeline"
	"horse.fit/newslink/internal/runlock"
)

const (
	articleID   = "6f1d3c1e-8c55-4b0e-9d7a-3b5b8f0c2a11"
	workspaceID = "0a8e7f44-1d3b-4c52-a9a8-5e2f6c7d8e90"
)

type fakePasses struct {
	ingestResult ingest.Result
	matchResult  matching.Result
	runResult    pipeline.RunResult
	err          error
	ctxErr       error
	deadline     bool
}

func (f *fakePasses) Sources() []feeds.Source {
	return []feeds.Source{{ID: "deadline", URL: "https://deadline.com/feed/", DisplayName: "Deadline"}}
}

func (f *fakePasses) RunIngest(context.Context) (ingest.Result, error) {
	return f.ingestResult, f.err
}

func (f *fakePasses) RunMatch(ctx context.Context) (matching.Result, error) {
	f.ctxErr = ctx.Err()
	_, f.deadline = ctx.Deadline()
	return f.matchResult, f.err
}

func (f *fakePasses) RunAll(context.Context) (pipeline.RunResult, error) {
	return f.runResult, f.err
}

type fakeStore struct {
	pingErr       error
	articles      map[string]db.Article
	matches       []db.ArticleMatch
	notifications []db.Notification
	lastList      db.ArticleListOptions
	lastWorkspace string
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) CountArticles(context.Context) (db.ArticleCounts, error) {
	return db.ArticleCounts{Total: int64(len(f.articles))}, nil
}

func (f *fakeStore) ListArticles(_ context.Context, opts db.ArticleListOptions) ([]db.Article, error) {
	f.lastList = opts
	out := make([]db.Article, 0, len(f.articles))
	for _, article := range f.articles {
		out = append(out, article)
	}
	return out, nil
}

func (f *fakeStore) GetArticle(_ context.Context, id string) (*db.Article, error) {
	article, ok := f.articles[id]
	if !ok {
		return nil, db.ErrNoRows
	}
	return &article, nil
}

func (f *fakeStore) ListArticleMatches(context.Context, string) ([]db.ArticleMatch, error) {
	return f.matches, nil
}

func (f *fakeStore) ListNotifications(_ context.Context, workspaceID string, _ int) ([]db.Notification, error) {
	f.lastWorkspace = workspaceID
	return f.notifications, nil
}

type fakeReader struct {
	text string
	err  error
}

func (f fakeReader) FetchBody(context.Context, string) (string, error) { return f.text, f.err }

func newTestServer(passes *fakePasses, store *fakeStore, reader BodyReader) http.Handler {
	return NewServer(passes, store, reader, zerolog.Nop(), Options{}).Handler()
}

func doRequest(t *testing.T, handler http.Handler, method, target string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, body
}

func sampleStore() *fakeStore {
	return &fakeStore{articles: map[string]db.Article{
		articleID: {
			ID:          articleID,
			Title:       "Netflix Greenlights New Series",
			Summary:     "A short summary.",
			URL:         "https://x.com/a",
			PublishedAt: time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC),
			Source:      "deadline",
		},
	}}
}

func TestIngestEndpointReturnsPerFeedBreakdown(t *testing.T) {
	t.Parallel()

	passes := &fakePasses{ingestResult: ingest.Result{Sources: []ingest.SourceResult{
		{SourceID: "deadline", Feed: "Deadline", ArticlesFound: 3, Saved: 2, Skipped: 1},
		{SourceID: "variety", Feed: "Variety", Error: "unexpected status 503"},
	}}}

	code, body := doRequest(t, newTestServer(passes, sampleStore(), nil), http.MethodPost, "/api/v1/ingest")
	if code != http.StatusOK || body["success"] != true {
		t.Fatalf("unexpected response %d %+v", code, body)
	}
	if _, ok := body["timestamp"].(string); !ok {
		t.Fatalf("expected timestamp, got %+v", body)
	}

	results := body["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	first := results[0].(map[string]any)
	if first["feed"] != "Deadline" || first["articlesFound"] != float64(3) || first["saved"] != float64(2) || first["skipped"] != float64(1) {
		t.Fatalf("unexpected first result %+v", first)
	}
	if results[1].(map[string]any)["error"] != "unexpected status 503" {
		t.Fatalf("expected failed feed error, got %+v", results[1])
	}
}

func TestMatchEndpoint(t *testing.T) {
	t.Parallel()

	passes := &fakePasses{matchResult: matching.Result{Processed: 4, Matches: matching.MatchCounts{Contacts: 1, Companies: 2}}}
	code, body := doRequest(t, newTestServer(passes, sampleStore(), nil), http.MethodPost, "/api/v1/match")
	if code != http.StatusOK || body["processed"] != float64(4) {
		t.Fatalf("unexpected response %d %+v", code, body)
	}
	matches := body["matches"].(map[string]any)
	if matches["contacts"] != float64(1) || matches["companies"] != float64(2) || matches["projects"] != float64(0) {
		t.Fatalf("unexpected matches %+v", matches)
	}
}

func TestMatchEndpointOutlivesClientDisconnect(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	passes := &fakePasses{matchResult: matching.Result{Processed: 1}}
	handler := NewServer(passes, sampleStore(), nil, zerolog.Nop(), Options{PassTimeout: time.Minute}).Handler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/match", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if passes.ctxErr != nil {
		t.Fatalf("pass saw cancelled context: %v", passes.ctxErr)
	}
	if !passes.deadline {
		t.Fatalf("expected pass context to carry the server deadline")
	}
}

func TestRunEndpointSummary(t *testing.T) {
	t.Parallel()

	passes := &fakePasses{runResult: pipeline.RunResult{
		Summary: pipeline.Summary{ArticlesFound: 7, ArticlesSaved: 6, ContactMatches: 2, CompanyMatches: 3, ProjectMatches: 1},
	}}
	code, body := doRequest(t, newTestServer(passes, sampleStore(), nil), http.MethodPost, "/api/v1/run")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	summary := body["summary"].(map[string]any)
	if summary["articles_found"] != float64(7) || summary["articles_saved"] != float64(6) || summary["project_matches"] != float64(1) {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if _, ok := body["ingest"].(map[string]any); !ok {
		t.Fatalf("expected ingest section, got %+v", body)
	}
}

func TestPassFailureStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "roster", err: fmt.Errorf("%w: dial tcp", matching.ErrRosterUnavailable), want: http.StatusServiceUnavailable},
		{name: "locked", err: fmt.Errorf("%w: /tmp/newslink-match.lock", runlock.ErrHeld), want: http.StatusConflict},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			code, body := doRequest(t, newTestServer(&fakePasses{err: tc.err}, sampleStore(), nil), http.MethodPost, "/api/v1/match")
			if code != tc.want {
				t.Fatalf("status = %d, want %d", code, tc.want)
			}
			if body["success"] != false || body["error"] == "" {
				t.Fatalf("unexpected failure body %+v", body)
			}
			if details, _ := body["details"].(string); !strings.Contains(details, tc.err.Error()) {
				t.Fatalf("expected details to carry the cause, got %+v", body["details"])
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	code, body := doRequest(t, newTestServer(&fakePasses{}, sampleStore(), nil), http.MethodGet, "/api/v1/health")
	if code != http.StatusOK || body["database"] != "ok" || body["sources"] != float64(1) {
		t.Fatalf("unexpected health %d %+v", code, body)
	}

	store := sampleStore()
	store.pingErr = errors.New("connection refused")
	code, body = doRequest(t, newTestServer(&fakePasses{}, store, nil), http.MethodGet, "/api/v1/health")
	if code != http.StatusServiceUnavailable || body["success"] != false {
		t.Fatalf("unexpected degraded health %d %+v", code, body)
	}
}

func TestArticlesEndpoint(t *testing.T) {
	t.Parallel()

	store := sampleStore()
	code, body := doRequest(t, newTestServer(&fakePasses{}, store, nil), http.MethodGet, "/api/v1/articles?limit=10&unprocessed=true&source=deadline")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d %+v", code, body)
	}
	if store.lastList != (db.ArticleListOptions{Limit: 10, UnprocessedOnly: true, Source: "deadline"}) {
		t.Fatalf("unexpected list options %+v", store.lastList)
	}

	article := body["articles"].([]any)[0].(map[string]any)
	for _, field := range []string{"id", "title", "summary", "url", "published_at", "source", "author", "is_processed", "relevance_score"} {
		if _, ok := article[field]; !ok {
			t.Fatalf("article missing %q: %+v", field, article)
		}
	}
	if _, ok := article["body"]; ok {
		t.Fatalf("body must not be listed")
	}

	code, _ = doRequest(t, newTestServer(&fakePasses{}, store, nil), http.MethodGet, "/api/v1/articles?limit=0")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for limit=0, got %d", code)
	}
	code, _ = doRequest(t, newTestServer(&fakePasses{}, store, nil), http.MethodGet, "/api/v1/articles?unprocessed=maybe")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad unprocessed flag, got %d", code)
	}
}

func TestArticleDetailPreview(t *testing.T) {
	t.Parallel()

	handler := newTestServer(&fakePasses{}, sampleStore(), fakeReader{text: "Reader extracted text."})
	code, body := doRequest(t, handler, http.MethodGet, "/api/v1/articles/"+articleID)
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	article := body["article"].(map[string]any)
	if article["preview_source"] != "reader" || article["preview_text"] != "Reader extracted text." {
		t.Fatalf("unexpected preview %+v", article)
	}

	handler = newTestServer(&fakePasses{}, sampleStore(), fakeReader{err: errors.New("status 403")})
	_, body = doRequest(t, handler, http.MethodGet, "/api/v1/articles/"+articleID)
	article = body["article"].(map[string]any)
	if article["preview_source"] != "summary" || article["preview_error"] != "status 403" {
		t.Fatalf("expected summary fallback, got %+v", article)
	}
}

func TestArticleMatchesEndpoint(t *testing.T) {
	t.Parallel()

	store := sampleStore()
	store.matches = []db.ArticleMatch{{
		ArticleID:       articleID,
		EntityType:      db.EntityTypeCompany,
		EntityID:        "7b0c1a2d-0000-4000-8000-000000000001",
		MatchType:       db.MatchTypeCompany,
		MatchConfidence: 0.65,
		MatchedText:     "Netflix",
	}}
	handler := newTestServer(&fakePasses{}, store, nil)

	code, body := doRequest(t, handler, http.MethodGet, "/api/v1/articles/"+articleID+"/matches")
	if code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	match := body["matches"].([]any)[0].(map[string]any)
	if match["match_type"] != "company_mention" || match["match_confidence"] != 0.65 {
		t.Fatalf("unexpected match %+v", match)
	}

	code, _ = doRequest(t, handler, http.MethodGet, "/api/v1/articles/not-a-uuid/matches")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	code, _ = doRequest(t, handler, http.MethodGet, "/api/v1/articles/"+workspaceID+"/matches")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestNotificationsEndpoint(t *testing.T) {
	t.Parallel()

	store := sampleStore()
	store.notifications = []db.Notification{{ID: 1, WorkspaceID: workspaceID, Title: "Ava Chen in the news", ActionType: db.ActionTypeMatch}}
	handler := newTestServer(&fakePasses{}, store, nil)

	code, body := doRequest(t, handler, http.MethodGet, "/api/v1/notifications?workspace_id="+workspaceID)
	if code != http.StatusOK || len(body["notifications"].([]any)) != 1 {
		t.Fatalf("unexpected response %d %+v", code, body)
	}
	if store.lastWorkspace != workspaceID {
		t.Fatalf("workspace not forwarded, got %q", store.lastWorkspace)
	}

	code, _ = doRequest(t, handler, http.MethodGet, "/api/v1/notifications")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 without workspace, got %d", code)
	}
}

func TestUnknownRouteUsesFailureEnvelope(t *testing.T) {
	globaltime.SetMockTime(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	code, body := doRequest(t, newTestServer(&fakePasses{}, sampleStore(), nil), http.MethodGet, "/api/v1/nope")
	if code != http.StatusNotFound || body["success"] != false {
		t.Fatalf("unexpected response %d %+v", code, body)
	}
	if body["timestamp"] != "2025-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected timestamp %v", body["timestamp"])
	}
}
