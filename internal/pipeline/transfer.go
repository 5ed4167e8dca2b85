package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goestools/goestow/internal/blob"
	"github.com/goestools/goestow/internal/config"
)

// metadata key carrying the content checksum on every object
const checksumMetadataKey = "md5"

// Transferer runs the upload protocol for a single file: checksum once,
// then upload + HEAD size verification with capped exponential backoff,
// and an optional local delete after a verified transfer.
type Transferer struct {
	backend           blob.Backend
	verified          *VerifiedCache
	root              string
	prefix            string
	extraMeta         map[string]string
	deleteAfterUpload bool
	maxAttempts       int
	backoffCap        time.Duration
	attemptTimeout    time.Duration

	// injectable for tests
	sleep func(ctx context.Context, d time.Duration) bool
}

func NewTransferer(cfg *config.Config, backend blob.Backend, verified *VerifiedCache) *Transferer {
	return &Transferer{
		backend:           backend,
		verified:          verified,
		root:              cfg.WatchRoot,
		prefix:            cfg.Prefix,
		extraMeta:         cfg.ExtraMetadata,
		deleteAfterUpload: cfg.DeleteAfterUpload,
		maxAttempts:       cfg.MaxAttempts,
		backoffCap:        cfg.BackoffCap,
		attemptTimeout:    cfg.AttemptTimeout,
		sleep:             sleepCtx,
	}
}

// Transfer uploads path and returns true once the remote size matched the
// local size. False after maxAttempts failures or context cancellation;
// the file stays on disk and is retried when a later scan rediscovers it.
func (t *Transferer) Transfer(ctx context.Context, path string) bool {
	key := KeyFor(t.root, t.prefix, path)

	// checksum once per transfer, reused across attempts
	checksum, err := fileMD5(path)
	if err != nil {
		slog.Warn("checksum", "path", path, "error", err)
		return false
	}

	metadata := make(map[string]string, len(t.extraMeta)+1)
	metadata[checksumMetadataKey] = checksum
	for k, v := range t.extraMeta {
		metadata[k] = v
	}

	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		slog.Info("uploading", "path", path, "key", key, "attempt", attempt)

		err := t.attempt(ctx, path, key, checksum, metadata)
		if err == nil {
			return true
		}
		slog.Warn("upload attempt failed", "path", path, "key", key, "attempt", attempt, "error", err)

		if ctx.Err() != nil || attempt == t.maxAttempts {
			break
		}
		if !t.sleep(ctx, t.backoffDelay(attempt)) {
			break
		}
	}
	return false
}

func (t *Transferer) attempt(ctx context.Context, path, key, checksum string, metadata map[string]string) error {
	actx, cancel := context.WithTimeout(ctx, t.attemptTimeout)
	defer cancel()

	if _, err := t.backend.PutFile(actx, &blob.PutFileParams{
		Key:      key,
		FilePath: path,
		Metadata: metadata,
	}); err != nil {
		return fmt.Errorf("put: %w", err)
	}

	head, err := t.backend.Head(actx, key)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("verify stat: %w", err)
	}

	if head.Size != info.Size() {
		return fmt.Errorf("size mismatch for %s: remote=%d local=%d", key, head.Size, info.Size())
	}

	slog.Info("verified upload", "key", key, "size", humanize.Bytes(uint64(head.Size)))

	if !t.deleteAfterUpload {
		t.verified.Mark(path, info.Size(), info.ModTime(), checksum)
		return nil
	}

	if err := os.Remove(path); err != nil {
		// remote copy is authoritative, a leftover local file is only a warning
		slog.Warn("delete after upload", "path", path, "error", err)
		t.verified.Mark(path, info.Size(), info.ModTime(), checksum)
	} else {
		slog.Info("deleted local file", "path", path)
	}
	return nil
}

func (t *Transferer) backoffDelay(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > t.backoffCap {
		d = t.backoffCap
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
