// SPDX-License-Identifier: MPL-2.0

package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	// StatusWritten means the output was created or replaced.
	StatusWritten Status = iota + 1
	// StatusUnchanged means the output already had the rendered content.
	StatusUnchanged
	// StatusUpToDate means a check found the output current.
	StatusUpToDate
	// StatusStale means a check found the output differs from the render.
	StatusStale
	// StatusMissing means a check found no output file.
	StatusMissing
	// StatusPrinted means the output was written to a stream.
	StatusPrinted
	// StatusFailed means the target could not be generated.
	StatusFailed
)

type (
	// Status is the outcome of one target.
	Status int

	// Sink receives rendered outputs.
	Sink interface {
		Put(ctx context.Context, output string, content []byte) (Status, error)
	}

	// FileSink writes outputs to a filesystem, leaving files whose content
	// already matches untouched.
	FileSink struct {
		fs afero.Fs
	}

	// CheckSink compares outputs with the files on a filesystem without
	// writing.
	CheckSink struct {
		fs afero.Fs
	}

	// WriterSink streams every output to one writer.
	WriterSink struct {
		w io.Writer
	}
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusUnchanged:
		return "unchanged"
	case StatusUpToDate:
		return "up to date"
	case StatusStale:
		return "stale"
	case StatusMissing:
		return "missing"
	case StatusPrinted:
		return "printed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// NeedsAttention reports whether the status makes a check fail.
func (s Status) NeedsAttention() bool {
	return s == StatusStale || s == StatusMissing || s == StatusFailed
}

// NewFileSink returns a sink writing to fs.
func NewFileSink(fs afero.Fs) *FileSink {
	return &FileSink{fs: fs}
}

// Put writes content to output unless the file already holds it.
func (s *FileSink) Put(ctx context.Context, output string, content []byte) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusFailed, err
	}
	existing, err := afero.ReadFile(s.fs, output)
	switch {
	case err == nil && DigestOf(existing) == DigestOf(content):
		slog.Debug("output unchanged, skipping write", "output", output)
		return StatusUnchanged, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return StatusFailed, fmt.Errorf("reading %s: %w", output, err)
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return StatusFailed, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(s.fs, output, content, 0o644); err != nil {
		return StatusFailed, fmt.Errorf("writing %s: %w", output, err)
	}
	return StatusWritten, nil
}

// NewCheckSink returns a sink comparing against fs.
func NewCheckSink(fs afero.Fs) *CheckSink {
	return &CheckSink{fs: fs}
}

// Put reports whether output holds content.
func (s *CheckSink) Put(ctx context.Context, output string, content []byte) (Status, error) {
	if err := ctx.Err(); err != nil {
		return StatusFailed, err
	}
	existing, err := afero.ReadFile(s.fs, output)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return StatusMissing, nil
	case err != nil:
		return StatusFailed, fmt.Errorf("reading %s: %w", output, err)
	case DigestOf(existing) != DigestOf(content):
		return StatusStale, nil
	default:
		return StatusUpToDate, nil
	}
}

// NewWriterSink returns a sink printing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Put writes content to the sink's writer.
func (s *WriterSink) Put(_ context.Context, _ string, content []byte) (Status, error) {
	if _, err := s.w.Write(content); err != nil {
		return StatusFailed, err
	}
	return StatusPrinted, nil
}
