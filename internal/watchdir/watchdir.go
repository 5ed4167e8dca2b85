package watchdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = ".goestow.lock"

var ErrLocked = errors.New("watch root is locked by another goestow instance")

// WatchDir is the resolved watch root plus a file lock that keeps two
// daemons from shipping the same tree at once.
type WatchDir struct {
	Root string

	flock *flock.Flock
}

func New(root string) (*WatchDir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root is not a directory: %s", abs)
	}

	return &WatchDir{
		Root:  abs,
		flock: flock.New(filepath.Join(abs, lockFileName)),
	}, nil
}

func (w *WatchDir) Lock() error {
	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("lock watch root: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	return nil
}

func (w *WatchDir) Unlock() error {
	// don't remove a lock file this process never held
	if !w.flock.Locked() {
		return nil
	}
	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("unlock watch root: %w", err)
	}
	return os.Remove(w.flock.Path())
}
