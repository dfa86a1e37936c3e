package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCleanTextCollapsesWhitespaceAndPreservesParagraphs(t *testing.T) {
	t.Parallel()

	got := CleanText("  First   paragraph \n\n Second\tparagraph \r\n\r\nThird line ")
	want := "First paragraph\n\nSecond paragraph\n\nThird line"
	if got != want {
		t.Fatalf("CleanText mismatch\nwant: %q\ngot:  %q", want, got)
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	got, truncated := TruncateText("abcdefghijklmnopqrstuvwxyz", 10)
	if !truncated || got != "abcdefghi…" {
		t.Fatalf("unexpected truncation: %q truncated=%v", got, truncated)
	}

	full, truncated := TruncateText("short", 10)
	if truncated || full != "short" {
		t.Fatalf("unexpected short text: %q truncated=%v", full, truncated)
	}
}

func TestFetchBodyPlainText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "reader-test" {
			http.Error(w, "missing agent", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Line one\n\n  Line   two  "))
	}))
	defer server.Close()

	r := New(Options{UserAgent: "reader-test"})
	got, err := r.FetchBody(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchBody() error = %v", err)
	}
	if got != "Line one\n\nLine two" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestFetchBodyHTML(t *testing.T) {
	t.Parallel()

	paragraph := strings.Repeat("The studio confirmed the director will return for the sequel. ", 8)
	page := `<html><head><title>Sequel news</title></head><body>
<nav>Menu Home About</nav>
<article><h1>Sequel news</h1><p>` + paragraph + `</p><p>` + paragraph + `</p></article>
<footer>Copyright</footer></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	got, err := New(Options{}).FetchBody(context.Background(), server.URL+"/story")
	if err != nil {
		t.Fatalf("FetchBody() error = %v", err)
	}
	if !strings.Contains(got, "director will return") {
		t.Fatalf("expected article text, got %q", got)
	}
}

func TestFetchBodyStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer server.Close()

	if _, err := New(Options{}).FetchBody(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error for 404")
	}
}
