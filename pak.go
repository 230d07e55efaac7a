package pak

import (
	"fmt"
	"iter"
	"log/slog"
	"os"

	"github.com/meigma/pak/internal/index"
	"github.com/meigma/pak/internal/pakio"
)

// Entry describes one file in the archive.
//
// Path is slash-separated and relative to the archive root. Offset is
// relative to the data blob start. Hash is stored as found in the
// archive; it is never verified.
type Entry struct {
	Path   string
	Offset uint32
	Size   uint32
	Hash   uint32
}

// Archive is a parsed pak archive.
//
// The index is held in memory; file content is read on demand from the
// underlying ByteSource. An Archive is immutable after New returns and
// safe for sequential use; it performs no locking of its own.
type Archive struct {
	src    ByteSource
	reader *pakio.Reader
	header index.Header
	tree   *index.Tree
	files  map[string]*index.File
	dirs   map[string]*index.Dir

	file     *os.File // non-nil when opened via Open
	logger   *slog.Logger
	warnings []string
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// New parses an archive from a ByteSource.
//
// The header and full index are read immediately; ErrFormat and
// ErrTruncated report structural failures. Non-structural
// inconsistencies (header size, trailer, or boundary mismatches) are
// recorded as warnings and do not fail parsing.
func New(src ByteSource, opts ...Option) (*Archive, error) {
	a := &Archive{src: src}
	for _, opt := range opts {
		opt(a)
	}

	r := pakio.NewReader(src)
	hdr, err := index.ReadHeader(r)
	if err != nil {
		return nil, err
	}
	tree, err := index.Parse(r)
	if err != nil {
		return nil, err
	}

	a.reader = r
	a.header = hdr
	a.tree = tree
	a.buildLookup()
	a.checkConsistency(r)
	return a, nil
}

// Open opens an archive file and parses it.
// The returned Archive must be closed to release the file handle.
func Open(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	src, err := newFileSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	a, err := New(src, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.file = f
	return a, nil
}

// Close closes the underlying file when the archive was opened via Open.
// Close is a no-op for archives created from a caller-owned ByteSource.
func (a *Archive) Close() error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// Len returns the number of files in the archive.
func (a *Archive) Len() int {
	return len(a.tree.Files)
}

// DataOffset returns the declared start of the data blob.
func (a *Archive) DataOffset() uint32 {
	return a.header.DataOffset
}

// DataSize returns the declared size of the data blob.
func (a *Archive) DataSize() uint32 {
	return a.header.DataSize
}

// Warnings returns the consistency warnings recorded while parsing, in
// the order they were detected. Warnings never prevent extraction.
func (a *Archive) Warnings() []string {
	out := make([]string, len(a.warnings))
	copy(out, a.warnings)
	return out
}

// Entries returns an iterator over all files in depth-first declaration
// order, the same order Extract processes them.
func (a *Archive) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, f := range a.tree.Files {
			e := Entry{Path: f.Path(), Offset: f.Offset, Size: f.Size, Hash: f.Hash}
			if !yield(e) {
				return
			}
		}
	}
}

// Entry returns the entry for the given slash-separated path.
func (a *Archive) Entry(path string) (Entry, bool) {
	f, ok := a.files[path]
	if !ok {
		return Entry{}, false
	}
	return Entry{Path: path, Offset: f.Offset, Size: f.Size, Hash: f.Hash}, true
}

// buildLookup indexes the parsed tree by path for fs.FS lookups.
func (a *Archive) buildLookup() {
	a.files = make(map[string]*index.File, len(a.tree.Files))
	a.dirs = make(map[string]*index.Dir)
	a.dirs["."] = a.tree.Root

	stack := []*index.Dir{a.tree.Root}
	for len(stack) > 0 {
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, f := range d.Files {
			a.files[f.Path()] = f
		}
		for _, sub := range d.Dirs {
			a.dirs[sub.Path()] = sub
			stack = append(stack, sub)
		}
	}
}

// checkConsistency runs the post-parse header checks. All three are
// warnings, not aborts: structurally plausible archives with sloppy
// bookkeeping are still worth extracting.
func (a *Archive) checkConsistency(r *pakio.Reader) {
	if int64(a.header.DataOffset)+int64(a.header.DataSize) != r.Size() {
		a.warn(fmt.Sprintf("header mismatch: dataOffset %d + dataSize %d != archive length %d",
			a.header.DataOffset, a.header.DataSize, r.Size()))
	}

	trailer, err := r.ReadU32()
	if err != nil || trailer != index.TrailerMagic {
		a.warn("index/data boundary mismatch, files likely corrupt")
	}

	if err == nil && r.Pos() != int64(a.header.DataOffset) {
		a.warn(fmt.Sprintf("index ends at offset %d, data blob declared at %d",
			r.Pos(), a.header.DataOffset))
	}
}

func (a *Archive) warn(msg string) {
	a.warnings = append(a.warnings, msg)
	a.log().Warn(msg)
}
