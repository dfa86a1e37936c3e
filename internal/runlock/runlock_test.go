package runlock

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestAcquireRejectsSecondHolder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first, err := Acquire(dir, "ingest")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer first.Release()

	if got, want := first.Path(), filepath.Join(dir, "newslink-ingest.lock"); got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}

	if _, err := Acquire(dir, "ingest"); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}

	other, err := Acquire(dir, "match")
	if err != nil {
		t.Fatalf("independent pass should lock, got %v", err)
	}
	_ = other.Release()
}

func TestReleaseAllowsReacquire(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lock, err := Acquire(dir, "run")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release() error = %v", err)
	}

	again, err := Acquire(dir, "run")
	if err != nil {
		t.Fatalf("reacquire error = %v", err)
	}
	_ = again.Release()

	var nilLock *Lock
	if err := nilLock.Release(); err != nil {
		t.Fatalf("nil Release() error = %v", err)
	}
}

func TestAcquireValidatesName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "../etc", "Ingest", "a b"} {
		if _, err := Acquire(t.TempDir(), name); err == nil {
			t.Fatalf("expected error for %q", name)
		}
	}
}
