package pak

import (
	"io"
	"io/fs"
	"sort"
	"time"

	"github.com/meigma/pak/internal/index"
)

// Interface compliance.
var (
	_ fs.FS        = (*Archive)(nil)
	_ fs.StatFS    = (*Archive)(nil)
	_ fs.ReadDirFS = (*Archive)(nil)
)

// Open implements fs.FS.
//
// Open returns an fs.File that streams the named file's byte range out
// of the data blob. The range is validated against the archive length
// before the file is handed out.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	if f, ok := a.files[name]; ok {
		if err := a.validateRange(f); err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		start := int64(a.header.DataOffset) + int64(f.Offset)
		return &archiveFile{
			info: fileInfo{name: f.Name, size: int64(f.Size), hash: f.Hash},
			r:    io.NewSectionReader(a.src, start, int64(f.Size)),
		}, nil
	}

	if d, ok := a.dirs[name]; ok {
		return &archiveDir{a: a, dir: d, name: name}, nil
	}

	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Stat implements fs.StatFS without reading any content.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if f, ok := a.files[name]; ok {
		return fileInfo{name: f.Name, size: int64(f.Size), hash: f.Hash}, nil
	}
	if d, ok := a.dirs[name]; ok {
		return dirInfo{name: dirBase(name, d)}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// ReadDir implements fs.ReadDirFS.
// Entries are sorted by name, as the fs contract requires; the
// archive's encounter order is available through Entries instead.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	d, ok := a.dirs[name]
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return a.dirEntries(d), nil
}

func (a *Archive) dirEntries(d *index.Dir) []fs.DirEntry {
	entries := make([]fs.DirEntry, 0, len(d.Dirs)+len(d.Files))
	for _, sub := range d.Dirs {
		entries = append(entries, dirEntry{info: dirInfo{name: sub.Name}})
	}
	for _, f := range d.Files {
		entries = append(entries, dirEntry{info: fileInfo{name: f.Name, size: int64(f.Size), hash: f.Hash}})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries
}

func dirBase(name string, d *index.Dir) string {
	if name == "." {
		return "."
	}
	return d.Name
}

// archiveFile streams one entry's byte range.
type archiveFile struct {
	info fileInfo
	r    *io.SectionReader
}

func (f *archiveFile) Read(p []byte) (int, error) {
	if f.r == nil {
		return 0, &fs.PathError{Op: "read", Path: f.info.name, Err: fs.ErrClosed}
	}
	return f.r.Read(p)
}

func (f *archiveFile) ReadAt(p []byte, off int64) (int, error) {
	if f.r == nil {
		return 0, &fs.PathError{Op: "read", Path: f.info.name, Err: fs.ErrClosed}
	}
	return f.r.ReadAt(p, off)
}

func (f *archiveFile) Stat() (fs.FileInfo, error) {
	return f.info, nil
}

func (f *archiveFile) Close() error {
	f.r = nil
	return nil
}

// archiveDir implements fs.ReadDirFile over a parsed directory node.
type archiveDir struct {
	a       *Archive
	dir     *index.Dir
	name    string
	entries []fs.DirEntry
	offset  int
}

func (d *archiveDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *archiveDir) Stat() (fs.FileInfo, error) {
	return dirInfo{name: dirBase(d.name, d.dir)}, nil
}

func (d *archiveDir) Close() error {
	return nil
}

func (d *archiveDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.entries == nil {
		d.entries = d.a.dirEntries(d.dir)
	}
	remaining := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return remaining, nil
	}
	if len(remaining) == 0 {
		return nil, io.EOF
	}
	if n > len(remaining) {
		n = len(remaining)
	}
	d.offset += n
	return remaining[:n], nil
}

// fileInfo describes a file entry. The stored archive hash is exposed
// through Sys.
type fileInfo struct {
	name string
	size int64
	hash uint32
}

func (i fileInfo) Name() string       { return i.name }
func (i fileInfo) Size() int64        { return i.size }
func (i fileInfo) Mode() fs.FileMode  { return 0o444 }
func (i fileInfo) ModTime() time.Time { return time.Time{} }
func (i fileInfo) IsDir() bool        { return false }
func (i fileInfo) Sys() any           { return i.hash }

// dirInfo describes a directory entry. The format stores no metadata
// for directories beyond their name and children.
type dirInfo struct {
	name string
}

func (i dirInfo) Name() string       { return i.name }
func (i dirInfo) Size() int64        { return 0 }
func (i dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (i dirInfo) ModTime() time.Time { return time.Time{} }
func (i dirInfo) IsDir() bool        { return true }
func (i dirInfo) Sys() any           { return nil }

// dirEntry adapts an fs.FileInfo to fs.DirEntry.
type dirEntry struct {
	info fs.FileInfo
}

func (e dirEntry) Name() string               { return e.info.Name() }
func (e dirEntry) IsDir() bool                { return e.info.IsDir() }
func (e dirEntry) Type() fs.FileMode          { return e.info.Mode().Type() }
func (e dirEntry) Info() (fs.FileInfo, error) { return e.info, nil }
