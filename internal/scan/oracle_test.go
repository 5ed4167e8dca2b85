package scan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dirEntryFor(t *testing.T, dir, name string) os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if e.Name() == name {
			return e
		}
	}
	t.Fatalf("entry %s not found in %s", name, dir)
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestOracle_Interesting(t *testing.T) {
	dir := t.TempDir()
	oracle := NewOracle([]string{"jpg", "png"}, 5*time.Second)

	writeFile(t, dir, "image.jpg", "x")
	writeFile(t, dir, "image.PNG", "x")
	writeFile(t, dir, "notes.txt", "x")
	writeFile(t, dir, ".hidden.jpg", "x")
	writeFile(t, dir, "image.jpg.part", "x")
	writeFile(t, dir, "image.jpg.tmp", "x")
	writeFile(t, dir, "noext", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0755))

	assert.True(t, oracle.Interesting(dirEntryFor(t, dir, "image.jpg")))
	assert.True(t, oracle.Interesting(dirEntryFor(t, dir, "image.PNG")), "extension match is case-insensitive")
	assert.False(t, oracle.Interesting(dirEntryFor(t, dir, "notes.txt")), "extension not in allow-list")
	assert.False(t, oracle.Interesting(dirEntryFor(t, dir, ".hidden.jpg")), "hidden files are skipped")
	assert.False(t, oracle.Interesting(dirEntryFor(t, dir, "image.jpg.part")), "partial files are skipped")
	assert.False(t, oracle.Interesting(dirEntryFor(t, dir, "image.jpg.tmp")), "temp files are skipped")
	assert.False(t, oracle.Interesting(dirEntryFor(t, dir, "noext")))
	assert.False(t, oracle.Interesting(dirEntryFor(t, dir, "sub.jpg")), "directories are never interesting")
}

func TestOracle_Stable(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "image.jpg", "content")

	now := time.Now()
	oracle := NewOracle([]string{"jpg"}, 5*time.Second)
	oracle.now = func() time.Time { return now }

	// fresh file, younger than the quiet window
	require.NoError(t, os.Chtimes(path, now, now.Add(-1*time.Second)))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, oracle.Stable(info))

	// old enough
	require.NoError(t, os.Chtimes(path, now, now.Add(-6*time.Second)))
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.True(t, oracle.Stable(info))

	// exactly at the threshold counts as stable
	require.NoError(t, os.Chtimes(path, now, now.Add(-5*time.Second)))
	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.True(t, oracle.Stable(info))
}

func TestOracle_StableRejectsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.jpg", "")

	now := time.Now()
	oracle := NewOracle([]string{"jpg"}, 5*time.Second)
	oracle.now = func() time.Time { return now }

	require.NoError(t, os.Chtimes(path, now, now.Add(-time.Minute)))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, oracle.Stable(info), "zero-size files are never stable")
}
