package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	if _, err := New("production", "loud"); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestNewParsesLevel(t *testing.T) {
	t.Parallel()

	logger, err := New("production", " WARN ")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Fatalf("unexpected level: %v", logger.GetLevel())
	}
}

func TestComponentAddsField(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := Component(zerolog.New(&buf), "matcher")
	logger.Info().Msg("hello")

	var event map[string]any
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if event["component"] != "matcher" {
		t.Fatalf("expected component=matcher, got %v", event["component"])
	}
}
