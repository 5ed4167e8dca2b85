package pipeline

import (
	"context"
	"log/slog"
	"os"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/goestools/goestow/internal/queue"
)

// WorkerPool runs a fixed number of workers draining the transfer queue.
// Each worker owns one transfer at a time; a slow upload occupies exactly
// one slot. Completion order across workers is not guaranteed.
type WorkerPool struct {
	queue    *queue.Queue[string]
	inflight mapset.Set[string]
	transfer *Transferer
	workers  int
}

func NewWorkerPool(workers int, q *queue.Queue[string], inflight mapset.Set[string], transfer *Transferer) *WorkerPool {
	return &WorkerPool{
		queue:    q,
		inflight: inflight,
		transfer: transfer,
		workers:  workers,
	}
}

// Run blocks until every worker has exited, which happens once the queue
// is closed and drained or the context is cancelled.
func (p *WorkerPool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(p.workers)
	for i := 1; i <= p.workers; i++ {
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	wg.Wait()
	return nil
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	log := slog.With("worker", id)
	log.Debug("worker start")
	defer log.Debug("worker stop")

	for {
		path, ok := p.queue.Dequeue()
		if !ok {
			return
		}
		p.process(ctx, path)
		if ctx.Err() != nil {
			return
		}
	}
}

func (p *WorkerPool) process(ctx context.Context, path string) {
	// release ownership whatever the outcome, so a still-present file
	// becomes eligible for rediscovery
	defer p.inflight.Remove(path)

	if _, err := os.Stat(path); err != nil {
		// vanished between enqueue and dequeue, not an error
		slog.Debug("skipping vanished file", "path", path)
		return
	}

	if !p.transfer.Transfer(ctx, path) && ctx.Err() == nil {
		slog.Error("transfer exhausted, will retry after rediscovery", "path", path)
	}
}
