package pak

import (
	"fmt"

	"github.com/meigma/pak/internal/index"
	"github.com/meigma/pak/internal/sink"
)

// ProgressEvent reports the handling of one file entry during Extract.
type ProgressEvent struct {
	Path    string
	Index   int // zero-based position in the flat file list
	Total   int
	Size    uint32
	Skipped bool
}

// ProgressFunc receives progress updates during Extract.
type ProgressFunc func(ProgressEvent)

// Extract writes every file in the archive beneath destDir.
//
// Files are processed strictly sequentially in depth-first declaration
// order. Existing output files are skipped unless ExtractWithOverwrite
// is set. Each file's byte range is validated against the archive
// length before it is copied; a range that points outside the archive,
// or any filesystem failure, aborts the whole run.
func (a *Archive) Extract(destDir string, opts ...ExtractOption) error {
	cfg := extractConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := sink.New(destDir, sink.WithOverwrite(cfg.overwrite))
	total := len(a.tree.Files)

	for i, f := range a.tree.Files {
		rel := f.Path()

		if !s.ShouldProcess(rel) {
			a.log().Debug("skipping existing file", "path", rel)
			cfg.emit(ProgressEvent{Path: rel, Index: i, Total: total, Size: f.Size, Skipped: true})
			continue
		}

		if err := a.validateRange(f); err != nil {
			return fmt.Errorf("extract %s: %w", rel, err)
		}

		w, err := s.Writer(rel)
		if err != nil {
			return fmt.Errorf("extract %s: %w", rel, err)
		}
		start := int64(a.header.DataOffset) + int64(f.Offset)
		if err := a.reader.CopyRange(w, start, int64(f.Size)); err != nil {
			_ = w.Discard()
			return fmt.Errorf("extract %s: %w", rel, err)
		}
		if err := w.Commit(); err != nil {
			return fmt.Errorf("extract %s: %w", rel, err)
		}

		a.log().Debug("extracted file", "path", rel, "size", f.Size)
		cfg.emit(ProgressEvent{Path: rel, Index: i, Total: total, Size: f.Size})
	}

	return nil
}

// validateRange checks that the file's absolute byte range lies within
// the archive. The format does not guarantee this, so it is enforced
// here rather than trusted from the index.
func (a *Archive) validateRange(f *index.File) error {
	start := int64(a.header.DataOffset) + int64(f.Offset)
	end := start + int64(f.Size)
	if end > a.src.Size() {
		return fmt.Errorf("%w: data range [%d, %d) outside archive of %d bytes",
			ErrFormat, start, end, a.src.Size())
	}
	return nil
}

func (c *extractConfig) emit(e ProgressEvent) {
	if c.progress != nil {
		c.progress(e)
	}
}
