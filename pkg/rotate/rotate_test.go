package rotate

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAged(t *testing.T, path, data string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2024, 7, 13, 12, 0, 0, 0, time.UTC)

	oldLog := filepath.Join(root, "2024-07-01.log")
	freshLog := filepath.Join(root, "latest.log")
	nested := filepath.Join(root, "plugins", "old.log")
	sink := filepath.Join(root, "console.log")
	oldArchive := filepath.Join(root, "2024-05-01.log.gz")
	recentArchive := filepath.Join(root, "2024-07-05.log.gz")
	other := filepath.Join(root, "notes.txt")

	tenDays := now.Add(-10 * day)
	writeAged(t, oldLog, "old line\n", tenDays)
	writeAged(t, freshLog, "new line\n", now.Add(-time.Hour))
	writeAged(t, nested, "nested\n", tenDays)
	writeAged(t, sink, "console\n", tenDays)
	writeAged(t, oldArchive, "x", now.Add(-60*day))
	writeAged(t, recentArchive, "x", now.Add(-8*day))
	writeAged(t, other, "txt", tenDays)

	res, err := Run(Config{
		Root:            root,
		Exclude:         []string{"console.log"},
		GzipAfterDays:   7,
		DeleteAfterDays: 30,
	}, now)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{oldLog, nested}, res.Compressed)
	assert.Equal(t, []string{oldArchive}, res.Deleted)

	assert.NoFileExists(t, oldLog)
	assert.FileExists(t, oldLog+".gz")
	assert.FileExists(t, freshLog)
	assert.FileExists(t, sink)
	assert.FileExists(t, other)
	assert.FileExists(t, recentArchive)
	assert.NoFileExists(t, oldArchive)

	info, err := os.Stat(oldLog + ".gz")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(tenDays), "mtime %v, want %v", info.ModTime(), tenDays)

	f, err := os.Open(oldLog + ".gz")
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "old line\n", string(data))
}

func TestRunDisabled(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.log")
	writeAged(t, path, "x", time.Now().Add(-100*day))

	res, err := Run(Config{Root: root}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, res.Compressed)
	assert.FileExists(t, path)
}

func TestRunMissingRoot(t *testing.T) {
	res, err := Run(Config{Root: filepath.Join(t.TempDir(), "missing"), GzipAfterDays: 1}, time.Now())
	assert.NoError(t, err)
	assert.Empty(t, res.Compressed)
}
