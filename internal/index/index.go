// Package index parses the pak archive header and the nested index that
// precedes the data blob, producing an in-memory directory tree.
package index

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"slices"
	"strings"

	"github.com/meigma/pak/internal/pakio"
)

// Wire constants for the pak format.
const (
	// Magic is the archive signature, "PAK\x00" when little endian.
	Magic uint32 = 0x004B4150

	// TrailerMagic is the sentinel expected immediately after the index,
	// "DATA" when read in the archive's byte order.
	TrailerMagic uint32 = 0x44415441

	// HeaderSize is the fixed byte length of magic + dataOffset + dataSize.
	HeaderSize = 12
)

// Header holds the decoded archive header.
//
// Order is the byte order detected from the magic value and applies to
// every multi-byte field in the archive.
type Header struct {
	Order      binary.ByteOrder
	DataOffset uint32
	DataSize   uint32
}

// ReadHeader reads the magic, detects the byte order, and decodes the
// data blob location. The reader's byte order is set as a side effect.
//
// The magic is compared both as read and byte-swapped: an as-read match
// means little endian, a swapped match means big endian, and anything
// else is not a pak archive.
func ReadHeader(r *pakio.Reader) (Header, error) {
	r.SetOrder(binary.LittleEndian)
	raw, err := r.ReadU32()
	if err != nil {
		return Header{}, err
	}

	var order binary.ByteOrder
	switch {
	case raw == Magic:
		order = binary.LittleEndian
	case bits.ReverseBytes32(raw) == Magic:
		order = binary.BigEndian
	default:
		return Header{}, fmt.Errorf("%w: not a recognized archive (magic %#08x)", pakio.ErrFormat, raw)
	}
	r.SetOrder(order)

	dataOffset, err := r.ReadU32()
	if err != nil {
		return Header{}, err
	}
	dataSize, err := r.ReadU32()
	if err != nil {
		return Header{}, err
	}

	return Header{Order: order, DataOffset: dataOffset, DataSize: dataSize}, nil
}

// Dir is a directory node in the parsed index.
//
// The root directory has no name and no parent. Children appear in
// archive encounter order. The tree is immutable once Parse returns.
type Dir struct {
	Name   string
	Parent *Dir
	Dirs   []*Dir
	Files  []*File
}

// File is a file node in the parsed index.
//
// Offset is relative to the data blob start, not the archive start.
// Hash is stored as found in the archive and never verified.
type File struct {
	Name   string
	Parent *Dir
	Offset uint32
	Size   uint32
	Hash   uint32
}

// Tree is the result of parsing an index: the root directory plus every
// file node in depth-first declaration order.
type Tree struct {
	Root  *Dir
	Files []*File
}

// Path returns the slash-separated path of the directory relative to the
// archive root. The anonymous root contributes no component.
func (d *Dir) Path() string {
	if d.Parent == nil {
		return ""
	}
	parts := []string{d.Name}
	for p := d.Parent; p != nil && p.Parent != nil; p = p.Parent {
		parts = append(parts, p.Name)
	}
	slices.Reverse(parts)
	return strings.Join(parts, "/")
}

// Path returns the slash-separated path of the file relative to the
// archive root.
func (f *File) Path() string {
	parts := []string{f.Name}
	for d := f.Parent; d != nil && d.Parent != nil; d = d.Parent {
		parts = append(parts, d.Name)
	}
	slices.Reverse(parts)
	return strings.Join(parts, "/")
}

// frame is a suspended directory during iterative construction: the next
// child record to read and the declared child count.
type frame struct {
	dir   *Dir
	next  uint32
	count uint32
}

// Parse consumes the nested record stream following the header and
// builds the directory tree.
//
// The traversal is iterative with an explicit stack of resume frames.
// Nesting depth is archive-controlled, so a recursive walk could
// exhaust the goroutine stack on a hostile archive.
func Parse(r *pakio.Reader) (*Tree, error) {
	rootNameLen, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	if rootNameLen != 0 {
		return nil, fmt.Errorf("%w: root name length is %d, want 0", pakio.ErrFormat, rootNameLen)
	}
	rootIsDir, err := r.ReadBool8()
	if err != nil {
		return nil, err
	}
	if !rootIsDir {
		return nil, fmt.Errorf("%w: root entry is not a directory", pakio.ErrFormat)
	}
	rootCount, err := r.ReadU32()
	if err != nil {
		return nil, err
	}

	tree := &Tree{Root: &Dir{}}
	stack := []frame{{dir: tree.Root, count: rootCount}}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for fr.next < fr.count {
			nameLen, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			name, err := r.ReadString(int(nameLen))
			if err != nil {
				return nil, err
			}
			isDir, err := r.ReadBool8()
			if err != nil {
				return nil, err
			}

			if !isDir {
				f := &File{Name: name, Parent: fr.dir}
				if f.Offset, err = r.ReadU32(); err != nil {
					return nil, err
				}
				if f.Size, err = r.ReadU32(); err != nil {
					return nil, err
				}
				if f.Hash, err = r.ReadU32(); err != nil {
					return nil, err
				}
				fr.dir.Files = append(fr.dir.Files, f)
				tree.Files = append(tree.Files, f)
				fr.next++
				continue
			}

			child := &Dir{Name: name, Parent: fr.dir}
			fr.dir.Dirs = append(fr.dir.Dirs, child)
			childCount, err := r.ReadU32()
			if err != nil {
				return nil, err
			}

			// Depth first: suspend this directory after the child just
			// read, then descend into the child before any sibling.
			fr.next++
			stack = append(stack, fr)
			stack = append(stack, frame{dir: child, count: childCount})
			break
		}
	}

	return tree, nil
}
