package scan

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// suffixes used by decoders for files still being written
var partialSuffixes = []string{".part", ".tmp"}

// Oracle decides whether a filesystem entry is worth uploading
// (Interesting) and whether its writer is done with it (Stable).
// Stability is a heuristic: no modification for the quiet window and a
// non-zero size. There is no file locking or close-write event, so a
// writer that pauses longer than the window can slip through; that is an
// accepted tradeoff for portability.
type Oracle struct {
	exts  map[string]struct{}
	quiet time.Duration
	now   func() time.Time
}

func NewOracle(exts []string, quiet time.Duration) *Oracle {
	allowed := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = struct{}{}
	}
	return &Oracle{
		exts:  allowed,
		quiet: quiet,
		now:   time.Now,
	}
}

// Interesting reports whether the entry is a regular, non-hidden,
// non-partial file whose extension is in the allow-list.
func (o *Oracle) Interesting(d fs.DirEntry) bool {
	if !d.Type().IsRegular() {
		return false
	}
	name := d.Name()
	if strings.HasPrefix(name, ".") {
		return false
	}
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	_, ok := o.exts[ext]
	return ok
}

// Stable reports whether the file has not been modified for the quiet
// window and is non-empty.
func (o *Oracle) Stable(info fs.FileInfo) bool {
	return o.now().Sub(info.ModTime()) >= o.quiet && info.Size() > 0
}
