package archive

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	dir  string
	name string
	args []string
}

type fakeRunner struct {
	calls []call
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	f.calls = append(f.calls, call{dir: dir, name: name, args: args})
	return f.err
}

func TestBridgeCommands(t *testing.T) {
	runner := &fakeRunner{}
	bridge := New(Config{}, runner, nil)
	ctx := context.Background()

	require.NoError(t, bridge.Compress(ctx, "/data/books/shelf", "/data/books/shelf.zip"))
	require.NoError(t, bridge.Extract(ctx, "/data/books/shelf.zip", "/data/books/shelf"))
	require.NoError(t, bridge.Copy(ctx, "/data/books", "/backups/books"))

	require.Len(t, runner.calls, 3)
	assert.Equal(t, call{dir: "/data/books", name: "zip", args: []string{"-r", "-q", "/data/books/shelf.zip", "shelf"}}, runner.calls[0])
	assert.Equal(t, call{dir: "/data/books", name: "unzip", args: []string{"-q", "/data/books/shelf.zip", "-d", "/data/books/shelf"}}, runner.calls[1])
	assert.Equal(t, call{dir: "/data", name: "cp", args: []string{"-r", "/data/books", "/backups/books"}}, runner.calls[2])
}

func TestBridgeCustomCommands(t *testing.T) {
	runner := &fakeRunner{}
	bridge := New(Config{ZipCommand: "/usr/local/bin/zip", CopyCommand: "gcp"}, runner, nil)

	require.NoError(t, bridge.Compress(context.Background(), "/a/b", "/a/b.zip"))
	require.NoError(t, bridge.Copy(context.Background(), "/a", "/c"))
	assert.Equal(t, "/usr/local/bin/zip", runner.calls[0].name)
	assert.Equal(t, "gcp", runner.calls[1].name)
}

func TestBridgePropagatesFailure(t *testing.T) {
	failure := &ProcessError{Command: "zip -r", Stderr: "zip error: Nothing to do!"}
	bridge := New(Config{}, &fakeRunner{err: failure}, nil)

	err := bridge.Compress(context.Background(), "/a/b", "/a/b.zip")
	require.Error(t, err)

	var processErr *ProcessError
	require.True(t, errors.As(err, &processErr))
	assert.Contains(t, err.Error(), "Nothing to do")
}

func TestExecRunnerStderrIsFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	err := ExecRunner{}.Run(context.Background(), t.TempDir(), "sh", "-c", "echo warning >&2")
	var processErr *ProcessError
	require.ErrorAs(t, err, &processErr)
	assert.NoError(t, processErr.Err, "exit status was zero")
	assert.Equal(t, "warning", processErr.Stderr)

	assert.NoError(t, ExecRunner{}.Run(context.Background(), t.TempDir(), "sh", "-c", "echo fine"))
}

func TestExecRunnerExitStatus(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}

	err := ExecRunner{}.Run(context.Background(), t.TempDir(), "false")
	var processErr *ProcessError
	require.ErrorAs(t, err, &processErr)
	var exitErr *exec.ExitError
	assert.ErrorAs(t, err, &exitErr)
}

func TestZipRoundTrip(t *testing.T) {
	for _, tool := range []string{"zip", "unzip"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}

	root := t.TempDir()
	src := filepath.Join(root, "shelf")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "a.txt"), []byte("Hello World"), 0644))

	bridge := New(Config{}, nil, nil)
	ctx := context.Background()

	archivePath := filepath.Join(root, "shelf.zip")
	require.NoError(t, bridge.Compress(ctx, src, archivePath))
	require.FileExists(t, archivePath)

	out := filepath.Join(root, "out")
	require.NoError(t, bridge.Extract(ctx, archivePath, out))

	data, err := os.ReadFile(filepath.Join(out, "shelf", "nested", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello World", string(data))
}
