package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"
	"github.com/goestools/goestow/internal/blob"
	"github.com/goestools/goestow/internal/config"
	"github.com/goestools/goestow/internal/queue"
	"github.com/goestools/goestow/internal/scan"
	"golang.org/x/sync/errgroup"
)

// Manager wires the scanner, dedup set, transfer queue and worker pool
// into one pipeline and owns their lifecycle.
type Manager struct {
	cfg      *config.Config
	backend  blob.Backend
	queue    *queue.Queue[string]
	inflight mapset.Set[string]
	verified *VerifiedCache
	scanner  *scan.Scanner
	pool     *WorkerPool
}

func NewManager(cfg *config.Config, backend blob.Backend) *Manager {
	q := queue.New[string]()
	inflight := mapset.NewSet[string]()
	verified := NewVerifiedCache(DefaultVerifiedCacheSize)
	transfer := NewTransferer(cfg, backend, verified)

	m := &Manager{
		cfg:      cfg,
		backend:  backend,
		queue:    q,
		inflight: inflight,
		verified: verified,
		pool:     NewWorkerPool(cfg.Concurrency, q, inflight, transfer),
	}
	oracle := scan.NewOracle(cfg.Exts, cfg.Quiet)
	m.scanner = scan.NewScanner(cfg.WatchRoot, cfg.ScanInterval, oracle, m)
	return m
}

// Submit implements scan.Sink. Insert into the in-flight set and enqueue
// as one unit: Add is the atomic membership test, and only the goroutine
// that won the insert pushes onto the queue, so a path is never queued
// twice while still owned by the pipeline.
func (m *Manager) Submit(path string, info fs.FileInfo) {
	if m.verified.Uploaded(path, info) {
		return
	}
	if !m.inflight.Add(path) {
		// already queued or transferring
		return
	}
	if !m.queue.Enqueue(path) {
		// shutting down
		m.inflight.Remove(path)
		return
	}
	slog.Debug("queued", "path", path, "size", humanize.Bytes(uint64(info.Size())))
}

// Start provisions the bucket, then runs the scanner and workers until
// the context is cancelled. Only the bucket step is fatal; per-file
// failures stay contained in the workers.
func (m *Manager) Start(ctx context.Context) error {
	slog.Info("pipeline start",
		"root", m.cfg.WatchRoot,
		"bucket", m.cfg.Bucket,
		"prefix", m.cfg.Prefix,
		"workers", m.cfg.Concurrency,
	)

	if err := m.backend.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return m.scanner.Run(egCtx)
	})

	eg.Go(func() error {
		return m.pool.Run(egCtx)
	})

	eg.Go(func() error {
		<-egCtx.Done()
		// unblock workers waiting on an empty queue; items already queued
		// are abandoned and rediscovered on the next run
		m.queue.Close()
		return nil
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("pipeline stopped")
	return nil
}

// check if Manager implements the scanner sink
var _ scan.Sink = (*Manager)(nil)
