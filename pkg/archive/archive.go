// Package archive delegates archive and copy operations to external OS
// utilities (zip, unzip, cp).
//
// A process succeeds only when it exits with status zero AND writes nothing
// to its error stream. Everything else is reported as a *ProcessError.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittodocs/internal/logger"
	"github.com/marmos91/dittodocs/pkg/metrics"
)

// Runner executes an external command in dir.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ProcessError describes a failed external process.
type ProcessError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ProcessError) Error() string {
	switch {
	case e.Err != nil && e.Stderr != "":
		return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Stderr)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Command, e.Stderr)
	}
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil || stderr.Len() > 0 {
		return &ProcessError{
			Command: name + " " + strings.Join(args, " "),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return nil
}

// Config names the utilities to invoke.
type Config struct {
	ZipCommand   string
	UnzipCommand string
	CopyCommand  string
}

func (c *Config) applyDefaults() {
	if c.ZipCommand == "" {
		c.ZipCommand = "zip"
	}
	if c.UnzipCommand == "" {
		c.UnzipCommand = "unzip"
	}
	if c.CopyCommand == "" {
		c.CopyCommand = "cp"
	}
}

// Bridge runs archive operations through a Runner.
//
// The Bridge performs no existence checks: callers must verify that
// destinations do not exist.
type Bridge struct {
	config  Config
	runner  Runner
	metrics metrics.StoreMetrics
}

// New creates a Bridge. A nil runner uses ExecRunner; nil metrics record nothing.
func New(config Config, runner Runner, m metrics.StoreMetrics) *Bridge {
	config.applyDefaults()
	if runner == nil {
		runner = ExecRunner{}
	}
	if m == nil {
		m = metrics.NewNoopStoreMetrics()
	}
	return &Bridge{config: config, runner: runner, metrics: m}
}

// Compress zips src (file or directory) into the archive dst. Entries are
// stored relative to src's parent, so the archive holds a single top-level
// entry named after src.
func (b *Bridge) Compress(ctx context.Context, src, dst string) error {
	return b.run(ctx, "compress", filepath.Dir(src), b.config.ZipCommand,
		"-r", "-q", dst, filepath.Base(src))
}

// Extract unzips the archive src into the directory dst.
func (b *Bridge) Extract(ctx context.Context, src, dst string) error {
	return b.run(ctx, "extract", filepath.Dir(src), b.config.UnzipCommand,
		"-q", src, "-d", dst)
}

// Copy recursively copies src to dst.
func (b *Bridge) Copy(ctx context.Context, src, dst string) error {
	return b.run(ctx, "copy", filepath.Dir(src), b.config.CopyCommand,
		"-r", src, dst)
}

func (b *Bridge) run(ctx context.Context, kind, dir, name string, args ...string) error {
	start := time.Now()
	err := b.runner.Run(ctx, dir, name, args...)
	b.metrics.RecordArchive(kind, time.Since(start), err)

	if err != nil {
		logger.Warn("Archive %s failed: %v", kind, err)
		return err
	}
	logger.Debug("Archive %s: %s %s", kind, name, strings.Join(args, " "))
	return nil
}
