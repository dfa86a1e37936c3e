// Package runlock keeps two overlapping invocations of the same pass from
// running on one host.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofrs/flock"
)

// ErrHeld is returned when another process already holds the lock for a pass.
var ErrHeld = errors.New("pass already running")

var validName = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Lock is an acquired advisory lock for one pass.
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the non-blocking lock file "<dir>/newslink-<name>.lock".
// An empty dir falls back to the OS temp directory.
func Acquire(dir, name string) (*Lock, error) {
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("invalid lock name %q", name)
	}
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	path := filepath.Join(dir, "newslink-"+name+".lock")
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, path)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release unlocks the file. It is safe to call on a nil Lock and more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
