package pipeline

import (
	"path/filepath"
)

// KeyFor derives the remote object key for a local path: the
// slash-normalized path relative to root, with the optional prefix
// prepended. Pure function of (root, prefix, path).
func KeyFor(root, prefix, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		// discovery only yields paths under root; keep a sane key anyway
		rel = filepath.Base(path)
	}
	key := filepath.ToSlash(rel)
	if prefix != "" {
		key = prefix + "/" + key
	}
	return key
}
