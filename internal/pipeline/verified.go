package pipeline

import (
	"io/fs"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultVerifiedCacheSize = 4096

type verifiedEntry struct {
	size     int64
	modTime  time.Time
	checksum string
}

// VerifiedCache remembers files whose upload was size-verified but which
// are still on disk (delete disabled or failed). Discovery consults it to
// avoid re-uploading the same bytes on every scan cycle. Entries are
// keyed by path and invalidated as soon as size or mtime change, so a
// rewritten file uploads again. In-memory only: after a restart every
// still-present file is uploaded at least once more.
type VerifiedCache struct {
	cache *lru.Cache[string, verifiedEntry]
}

func NewVerifiedCache(size int) *VerifiedCache {
	if size <= 0 {
		size = DefaultVerifiedCacheSize
	}
	cache, _ := lru.New[string, verifiedEntry](size)
	return &VerifiedCache{cache: cache}
}

// Mark records a verified upload for a file that remains on disk
func (c *VerifiedCache) Mark(path string, size int64, modTime time.Time, checksum string) {
	c.cache.Add(path, verifiedEntry{
		size:     size,
		modTime:  modTime,
		checksum: checksum,
	})
}

// Uploaded reports whether the file at path is unchanged since a verified
// upload. A size or mtime difference evicts the stale entry.
func (c *VerifiedCache) Uploaded(path string, info fs.FileInfo) bool {
	entry, ok := c.cache.Get(path)
	if !ok {
		return false
	}
	if entry.size != info.Size() || !entry.modTime.Equal(info.ModTime()) {
		c.cache.Remove(path)
		return false
	}
	return true
}

// Forget drops any record for path
func (c *VerifiedCache) Forget(path string) {
	c.cache.Remove(path)
}
