package feeds

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultSourcesAreValid(t *testing.T) {
	t.Parallel()

	sources, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if len(sources) == 0 {
		t.Fatalf("expected embedded sources")
	}
	for _, source := range sources {
		if !strings.HasPrefix(source.URL, "https://") {
			t.Fatalf("expected https feed url, got %q", source.URL)
		}
	}
}

func TestParseRejectsInvalidLists(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "empty", raw: "  ", wantErr: "empty"},
		{name: "empty list", raw: `[]`, wantErr: "schema validation failed"},
		{name: "missing url", raw: `[{"id":"a","displayName":"A"}]`, wantErr: "schema validation failed"},
		{name: "ftp url", raw: `[{"id":"a","url":"ftp://example.com/feed","displayName":"A"}]`, wantErr: "schema validation failed"},
		{name: "unknown field", raw: `[{"id":"a","url":"https://example.com/feed","displayName":"A","extra":1}]`, wantErr: "schema validation failed"},
		{name: "bad id", raw: `[{"id":"Has Space","url":"https://example.com/feed","displayName":"A"}]`, wantErr: "schema validation failed"},
		{name: "blank name", raw: `[{"id":"a","url":"https://example.com/feed","displayName":"   "}]`, wantErr: "displayName must not be empty"},
		{
			name:    "duplicate id",
			raw:     `[{"id":"a","url":"https://example.com/1","displayName":"A"},{"id":"a","url":"https://example.com/2","displayName":"B"}]`,
			wantErr: "duplicates",
		},
		{
			name:    "duplicate url",
			raw:     `[{"id":"a","url":"https://Example.com/feed","displayName":"A"},{"id":"b","url":"https://example.com/feed","displayName":"B"}]`,
			wantErr: "duplicates",
		},
		{name: "trailing content", raw: `[{"id":"a","url":"https://example.com/feed","displayName":"A"}] []`, wantErr: "trailing content"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tc.raw))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sources.json")
	raw := `[{"id":"trade","url":"https://trade.example/rss","displayName":"Trade Weekly"}]`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write sources: %v", err)
	}

	sources, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sources) != 1 || sources[0].ID != "trade" || sources[0].Name() != "Trade Weekly" {
		t.Fatalf("unexpected sources: %+v", sources)
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	t.Parallel()

	sources, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defaults, _ := Default()
	if len(sources) != len(defaults) {
		t.Fatalf("expected %d default sources, got %d", len(defaults), len(sources))
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
