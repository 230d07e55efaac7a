// Package pakio provides a sequential, endian-aware cursor over the raw
// bytes of a pak archive.
//
// The reader never reads past the declared source length: every primitive
// read checks the remaining byte count first and fails with ErrTruncated
// when the archive is shorter than the record being decoded.
package pakio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Sentinel errors shared by the wire-level packages. The root package
// re-exports these for callers.
var (
	// ErrFormat is returned when the archive violates the pak wire format.
	ErrFormat = errors.New("pak: invalid archive format")

	// ErrTruncated is returned when the archive ends before a complete
	// record could be read.
	ErrTruncated = errors.New("pak: unexpected end of archive")
)

// Source provides random access to the archive bytes.
type Source interface {
	io.ReaderAt
	Size() int64
}

// Reader is a forward-moving cursor over a Source.
//
// Multi-byte reads use the byte order set by SetOrder; the order is
// chosen once per archive during header detection and applies to every
// subsequent read.
type Reader struct {
	src   Source
	size  int64
	pos   int64
	order binary.ByteOrder
}

// NewReader creates a Reader positioned at offset 0.
// The byte order defaults to little endian until SetOrder is called.
func NewReader(src Source) *Reader {
	return &Reader{
		src:   src,
		size:  src.Size(),
		order: binary.LittleEndian,
	}
}

// SetOrder sets the byte order used for all subsequent multi-byte reads.
func (r *Reader) SetOrder(order binary.ByteOrder) {
	r.order = order
}

// Order returns the current byte order.
func (r *Reader) Order() binary.ByteOrder {
	return r.order
}

// Pos returns the current cursor position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// Size returns the total length of the underlying source.
func (r *Reader) Size() int64 {
	return r.size
}

// next reads exactly n bytes at the cursor and advances it.
func (r *Reader) next(n int) ([]byte, error) {
	if int64(n) > r.size-r.pos {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, %d remain",
			ErrTruncated, n, r.pos, r.size-r.pos)
	}
	buf := make([]byte, n)
	nr, err := r.src.ReadAt(buf, r.pos)
	if nr < n {
		if err == nil || errors.Is(err, io.EOF) {
			err = ErrTruncated
		}
		return nil, fmt.Errorf("read %d bytes at offset %d: %w", n, r.pos, err)
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (byte, error) {
	buf, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadBool8 reads a single byte as a boolean.
// Any nonzero byte is true; only 0x00 is false.
func (r *Reader) ReadBool8() (bool, error) {
	b, err := r.ReadU8()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// ReadU32 reads a 32-bit unsigned integer in the current byte order.
func (r *Reader) ReadU32() (uint32, error) {
	buf, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(buf), nil
}

// ReadString reads exactly n bytes and decodes them as UTF-8.
// Invalid UTF-8 is rejected with ErrFormat rather than replaced, so a
// garbled name never silently becomes a garbled output path.
func (r *Reader) ReadString(n int) (string, error) {
	buf, err := r.next(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: name at offset %d is not valid UTF-8", ErrFormat, r.pos-int64(n))
	}
	return string(buf), nil
}

// CopyRange streams exactly n bytes from absolute offset off into dst.
// The cursor is not moved. The range is checked against the source
// length before any byte is written.
func (r *Reader) CopyRange(dst io.Writer, off, n int64) error {
	if off < 0 || n < 0 || off > r.size || n > r.size-off {
		return fmt.Errorf("%w: range [%d, %d) outside archive of %d bytes",
			ErrTruncated, off, off+n, r.size)
	}
	written, err := io.Copy(dst, io.NewSectionReader(r.src, off, n))
	if err != nil {
		return fmt.Errorf("copy %d bytes at offset %d: %w", n, off, err)
	}
	if written != n {
		return fmt.Errorf("%w: copied %d of %d bytes at offset %d",
			ErrTruncated, written, n, off)
	}
	return nil
}
