package globaltime

import (
	"testing"
	"time"
)

func TestSetMockTimePinsClock(t *testing.T) {
	pinned := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	SetMockTime(pinned)
	defer ResetTime()

	if got := UTC(); !got.Equal(pinned) || got.Location() != time.UTC {
		t.Fatalf("unexpected mocked UTC time: %v", got)
	}
	if got := Since(pinned.Add(-time.Minute)); got != time.Minute {
		t.Fatalf("unexpected Since result: %v", got)
	}
}
