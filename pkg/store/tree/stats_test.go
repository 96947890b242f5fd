package tree

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodocs/pkg/store"
)

func TestStats(t *testing.T) {
	s := newStore(t)
	buildTree(t, s)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, stats.Documents)
	assert.Equal(t, 12, stats.Directories)
	assert.Equal(t, 30, stats.Files)

	// Every file holds its own relative path as content.
	var want int64
	for _, p := range buildPaths(t, s) {
		want += int64(len(p))
	}
	assert.Equal(t, want, stats.TotalBytes)

	count, err := s.Count(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Equal(t, count, stats.Documents)
}

func buildPaths(t *testing.T, s *Store) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(s.Root(), func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.Root(), p)
		files = append(files, filepath.ToSlash(rel))
		return err
	})
	require.NoError(t, err)
	return files
}

func TestStatsEmptyAndMissingRoot(t *testing.T) {
	s := newStore(t)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &store.Stats{}, stats)

	require.NoError(t, os.RemoveAll(s.Root()))
	stats, err = s.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
}

func TestMimeInference(t *testing.T) {
	s := newStore(t)
	writeFile(t, s, "notes.TXT", "x")
	writeFile(t, s, "data.json", "{}")
	writeFile(t, s, "blob.unknownext", "x")
	writeFile(t, s, "picture", "\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")
	ctx := context.Background()

	tests := []struct {
		path string
		want string
	}{
		{"notes.TXT", "text/plain"},
		{"data.json", "application/json"},
		{"blob.unknownext", "application/octet-stream"},
		{"picture", "application/octet-stream"},
	}
	for _, tt := range tests {
		doc, err := s.Get(ctx, pathID(t, tt.path))
		require.NoError(t, err)
		assert.Equal(t, tt.want, doc.Mime, tt.path)
	}

	sniffing := newStore(t, WithMimeSniffing(true))
	writeFile(t, sniffing, "picture", "\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")
	writeFile(t, sniffing, "readme", "plain words")

	doc, err := sniffing.Get(ctx, pathID(t, "picture"))
	require.NoError(t, err)
	assert.Equal(t, "image/png", doc.Mime)

	doc, err = sniffing.Get(ctx, pathID(t, "readme"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", doc.Mime, "charset parameter is stripped")
}

func TestUpdatedAtFollowsWrites(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("metadata-change time not exposed on " + runtime.GOOS)
	}

	s := newStore(t)
	writeFile(t, s, "a.txt", "a")
	abs := filepath.Join(s.Root(), "a.txt")

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(abs, past, past))

	doc, err := s.Get(context.Background(), pathID(t, "a.txt"))
	require.NoError(t, err)
	assert.True(t, doc.UpdatedAt.After(past.Add(time.Hour)),
		"metadata change from Chtimes is newer than the backdated mtime")
}
