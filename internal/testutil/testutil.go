// Package testutil provides an in-memory byte source and a synthetic
// archive builder for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"strings"
)

// ByteSource implements a simple in-memory byte source for tests.
type ByteSource struct {
	data []byte
}

// NewByteSource returns a byte source backed by the provided data.
func NewByteSource(data []byte) *ByteSource {
	return &ByteSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (s *ByteSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if off+int64(n) >= int64(len(s.data)) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (s *ByteSource) Size() int64 {
	return int64(len(s.data))
}

// Bytes returns the backing slice for tests that need to mutate data.
func (s *ByteSource) Bytes() []byte {
	return s.data
}

// Builder assembles a synthetic pak archive from paths and contents.
//
// Files are added with slash-separated paths; intermediate directories
// are created on first use. Insertion order is preserved, matching the
// encounter-order semantics of the real format.
type Builder struct {
	root *buildDir
}

type buildDir struct {
	name  string
	dirs  []*buildDir
	files []*buildFile
}

type buildFile struct {
	name string
	data []byte
}

// NewBuilder returns an empty archive builder.
func NewBuilder() *Builder {
	return &Builder{root: &buildDir{}}
}

// Add registers a file at the slash-separated path with the given
// content, creating intermediate directories as needed.
func (b *Builder) Add(path string, data []byte) *Builder {
	parts := strings.Split(path, "/")
	dir := b.root
	for _, part := range parts[:len(parts)-1] {
		dir = dir.child(part)
	}
	dir.files = append(dir.files, &buildFile{name: parts[len(parts)-1], data: data})
	return b
}

// AddDir registers an empty directory at the slash-separated path.
func (b *Builder) AddDir(path string) *Builder {
	dir := b.root
	for _, part := range strings.Split(path, "/") {
		dir = dir.child(part)
	}
	return b
}

func (d *buildDir) child(name string) *buildDir {
	for _, sub := range d.dirs {
		if sub.name == name {
			return sub
		}
	}
	sub := &buildDir{name: name}
	d.dirs = append(d.dirs, sub)
	return sub
}

// Bytes serializes the archive in the given byte order.
//
// Per-file hashes are CRC-32 (IEEE) of the content; the extractor
// treats them as opaque, so any deterministic value works.
func (b *Builder) Bytes(order binary.ByteOrder) []byte {
	var blob bytes.Buffer
	var index bytes.Buffer

	// Root record: anonymous directory.
	index.WriteByte(0)
	index.WriteByte(1)
	writeU32(&index, order, uint32(len(b.root.dirs)+len(b.root.files)))
	writeDir(&index, &blob, order, b.root)

	writeU32(&index, order, 0x44415441) // trailer

	dataOffset := uint32(12 + index.Len())

	var out bytes.Buffer
	writeU32(&out, order, 0x004B4150) // magic
	writeU32(&out, order, dataOffset)
	writeU32(&out, order, uint32(blob.Len()))
	out.Write(index.Bytes())
	out.Write(blob.Bytes())
	return out.Bytes()
}

// Source serializes the archive and wraps it in a ByteSource.
func (b *Builder) Source(order binary.ByteOrder) *ByteSource {
	return NewByteSource(b.Bytes(order))
}

func writeDir(index, blob *bytes.Buffer, order binary.ByteOrder, d *buildDir) {
	for _, f := range d.files {
		index.WriteByte(byte(len(f.name)))
		index.WriteString(f.name)
		index.WriteByte(0)
		writeU32(index, order, uint32(blob.Len()))
		writeU32(index, order, uint32(len(f.data)))
		writeU32(index, order, crc32.ChecksumIEEE(f.data))
		blob.Write(f.data)
	}
	for _, sub := range d.dirs {
		index.WriteByte(byte(len(sub.name)))
		index.WriteString(sub.name)
		index.WriteByte(1)
		writeU32(index, order, uint32(len(sub.dirs)+len(sub.files)))
		writeDir(index, blob, order, sub)
	}
}

func writeU32(buf *bytes.Buffer, order binary.ByteOrder, v uint32) {
	var tmp [4]byte
	order.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}
