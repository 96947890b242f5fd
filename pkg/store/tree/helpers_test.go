package tree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodocs/pkg/archive"
	"github.com/marmos91/dittodocs/pkg/docid"
	"github.com/marmos91/dittodocs/pkg/store"
)

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "books"), opts...)
	require.NoError(t, err)
	return s
}

func pathID(t *testing.T, p string) docid.ID {
	t.Helper()
	v, err := docid.FromPath(p)
	require.NoError(t, err)
	return v
}

func writeFile(t *testing.T, s *Store, rel, content string) {
	t.Helper()
	abs := filepath.Join(s.Root(), filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
}

func mkdir(t *testing.T, s *Store, rel string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), filepath.FromSlash(rel)), 0755))
}

func paths(docs []*store.Document) []string {
	out := make([]string, len(docs))
	for i, doc := range docs {
		out[i] = doc.ID.Path()
	}
	return out
}

func content(t *testing.T, doc *store.Document) string {
	t.Helper()
	require.NotNil(t, doc.Data)
	data, err := doc.Data.Bytes()
	require.NoError(t, err)
	return string(data)
}

// buildTree creates 3 top-level directories, each holding 3 subdirectories
// of 3 files, plus 3 top-level files: 42 entries. It returns the paths in
// breadth-first, name-ordered discovery order.
func buildTree(t *testing.T, s *Store) []string {
	t.Helper()

	var level0, level1, level2 []string
	for d := 0; d < 3; d++ {
		dir := fmt.Sprintf("d%d", d)
		level0 = append(level0, dir)
		for sub := 0; sub < 3; sub++ {
			subdir := fmt.Sprintf("%s/s%d", dir, sub)
			level1 = append(level1, subdir)
			for f := 0; f < 3; f++ {
				file := fmt.Sprintf("%s/x%d.txt", subdir, f)
				level2 = append(level2, file)
				writeFile(t, s, file, file)
			}
		}
	}
	for f := 0; f < 3; f++ {
		file := fmt.Sprintf("f%d.txt", f)
		level0 = append(level0, file)
		writeFile(t, s, file, file)
	}

	all := append(append(level0, level1...), level2...)
	require.Len(t, all, 42)
	return all
}

// fsRunner emulates zip, unzip and cp with plain filesystem calls so archive
// flows can be tested without the utilities installed.
type fsRunner struct {
	calls []string
	fail  bool
}

func (r *fsRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	if r.fail {
		return &archive.ProcessError{Command: name, Stderr: "simulated failure"}
	}

	switch name {
	case "zip": // -r -q <dst> <base>
		return os.WriteFile(args[2], []byte("zip of "+args[3]), 0644)
	case "unzip": // -q <src> -d <dst>
		dst := args[3]
		if err := os.MkdirAll(filepath.Join(dst, "books"), 0755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dst, "books", "restored.txt"), []byte("restored"), 0644)
	case "cp": // -r <src> <dst>
		return os.CopyFS(args[2], os.DirFS(args[1]))
	}
	return fmt.Errorf("unexpected command %s", name)
}

func newArchiveStore(t *testing.T, runner archive.Runner, opts ...Option) *Store {
	t.Helper()
	opts = append(opts, WithArchive(archive.New(archive.Config{}, runner, nil)))
	return newStore(t, opts...)
}

type recordedOp struct {
	operation string
	err       error
}

type recordingMetrics struct {
	ops       []recordedOp
	documents map[string]int
}

func (m *recordingMetrics) RecordOperation(collection, operation string, duration time.Duration, err error) {
	m.ops = append(m.ops, recordedOp{operation: operation, err: err})
}

func (m *recordingMetrics) RecordDocuments(collection, operation string, count int) {
	if m.documents == nil {
		m.documents = make(map[string]int)
	}
	m.documents[operation] = count
}

func (m *recordingMetrics) RecordArchive(kind string, duration time.Duration, err error) {}
