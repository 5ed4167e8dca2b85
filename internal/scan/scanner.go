package scan

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"
)

// Sink receives stable candidate files discovered by the scanner.
// Submit must not block on downstream capacity.
type Sink interface {
	Submit(path string, info fs.FileInfo)
}

// Scanner polls the watch root on a fixed interval and hands every
// interesting, stable file to the sink. Deduplication is the sink's
// concern; the scanner re-reports still-present files on every pass.
type Scanner struct {
	root     string
	interval time.Duration
	oracle   *Oracle
	sink     Sink
}

func NewScanner(root string, interval time.Duration, oracle *Oracle, sink Sink) *Scanner {
	return &Scanner{
		root:     root,
		interval: interval,
		oracle:   oracle,
		sink:     sink,
	}
}

// Run scans until the context is cancelled. A failed pass is logged and
// retried on the next tick, never fatal.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner start", "root", s.root, "interval", s.interval, "quiet", s.oracle.quiet)

	s.scanOnce()

	// using a timer and not a ticker to avoid queued ticks when a pass
	// takes longer than the interval
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scanner stop")
			return nil
		case <-timer.C:
			s.scanOnce()
			timer.Reset(s.interval)
		}
	}
}

func (s *Scanner) scanOnce() {
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			slog.Warn("scan walk", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if !s.oracle.Interesting(d) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// disappeared mid-scan, not an error
			return nil
		}

		if !s.oracle.Stable(info) {
			return nil
		}

		s.sink.Submit(path, info)
		return nil
	})
	if err != nil {
		slog.Error("scan failed", "root", s.root, "error", err)
	}
}
