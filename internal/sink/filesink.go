// Package sink writes extracted files into a destination directory.
package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSink writes archive entries beneath a destination directory.
//
// Files are written to a temporary file in the final directory and
// renamed into place on Commit, so a partially extracted file is never
// visible at its final path.
type FileSink struct {
	destDir   string
	overwrite bool
}

// Option configures a FileSink.
type Option func(*FileSink)

// WithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func WithOverwrite(overwrite bool) Option {
	return func(s *FileSink) {
		s.overwrite = overwrite
	}
}

// New creates a FileSink that writes under destDir.
// Parent directories are created as needed when writing.
func New(destDir string, opts ...Option) *FileSink {
	s := &FileSink{destDir: destDir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShouldProcess reports whether the entry at the slash-separated
// relative path rel should be written. It returns false when the file
// already exists and overwrite is disabled.
func (s *FileSink) ShouldProcess(rel string) bool {
	if s.overwrite {
		return true
	}
	_, err := os.Stat(filepath.Join(s.destDir, filepath.FromSlash(rel)))
	return os.IsNotExist(err)
}

// Committer receives one entry's bytes. Exactly one of Commit or
// Discard must be called; both release the underlying temp file.
type Committer interface {
	io.Writer
	Commit() error
	Discard() error
}

// Writer creates the entry's parent directories and returns a Committer
// that writes to a temp file and renames on Commit.
func (s *FileSink) Writer(rel string) (Committer, error) {
	destPath := filepath.Join(s.destDir, filepath.FromSlash(rel))

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".pak-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	return &fileCommitter{destPath: destPath, tempFile: tempFile}, nil
}

// fileCommitter writes to a temp file and renames on Commit.
type fileCommitter struct {
	destPath string
	tempFile *os.File
}

// Write implements io.Writer.
func (c *fileCommitter) Write(p []byte) (int, error) {
	return c.tempFile.Write(p)
}

// Commit closes the temp file and renames it to the final path.
func (c *fileCommitter) Commit() error {
	tempPath := c.tempFile.Name()

	if err := c.tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, c.destPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename to %s: %w", c.destPath, err)
	}

	return nil
}

// Discard closes and removes the temp file.
func (c *fileCommitter) Discard() error {
	tempPath := c.tempFile.Name()
	_ = c.tempFile.Close()
	return os.Remove(tempPath)
}
