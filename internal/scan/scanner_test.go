package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeSink) Submit(path string, info fs.FileInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
}

func (f *fakeSink) submitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func agedFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	old := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(path, old, old))
	return path
}

func TestScanner_SubmitsStableInterestingFiles(t *testing.T) {
	dir := t.TempDir()
	stable := agedFile(t, dir, "goes16/fd/image.jpg", "data")
	agedFile(t, dir, "notes.txt", "data")

	// recent file, not yet stable
	fresh := filepath.Join(dir, "fresh.jpg")
	require.NoError(t, os.WriteFile(fresh, []byte("data"), 0644))

	sink := &fakeSink{}
	scanner := NewScanner(dir, time.Second, NewOracle([]string{"jpg"}, 5*time.Second), sink)
	scanner.scanOnce()

	assert.Equal(t, []string{stable}, sink.submitted())
}

func TestScanner_ResubmitsOnEveryPass(t *testing.T) {
	dir := t.TempDir()
	path := agedFile(t, dir, "image.jpg", "data")

	sink := &fakeSink{}
	scanner := NewScanner(dir, time.Second, NewOracle([]string{"jpg"}, 5*time.Second), sink)
	scanner.scanOnce()
	scanner.scanOnce()

	// dedup is the sink's job, not the scanner's
	assert.Equal(t, []string{path, path}, sink.submitted())
}

func TestScanner_MissingRootIsNotFatal(t *testing.T) {
	sink := &fakeSink{}
	scanner := NewScanner(filepath.Join(t.TempDir(), "gone"), time.Second, NewOracle([]string{"jpg"}, 0), sink)

	// must not panic or submit anything
	scanner.scanOnce()
	assert.Empty(t, sink.submitted())
}
