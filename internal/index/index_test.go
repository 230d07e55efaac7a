package index

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/pak/internal/pakio"
	"github.com/meigma/pak/internal/testutil"
)

// parseArchive reads the header and index of a complete archive.
func parseArchive(tb testing.TB, data []byte) (Header, *Tree) {
	tb.Helper()
	r := pakio.NewReader(testutil.NewByteSource(data))
	hdr, err := ReadHeader(r)
	require.NoError(tb, err, "ReadHeader failed")
	tree, err := Parse(r)
	require.NoError(tb, err, "Parse failed")
	return hdr, tree
}

func flatPaths(tree *Tree) []string {
	paths := make([]string, 0, len(tree.Files))
	for _, f := range tree.Files {
		paths = append(paths, f.Path())
	}
	return paths
}

func TestReadHeader(t *testing.T) {
	t.Parallel()

	t.Run("little endian", func(t *testing.T) {
		t.Parallel()
		data := testutil.NewBuilder().Add("a.txt", []byte("hello")).Bytes(binary.LittleEndian)
		r := pakio.NewReader(testutil.NewByteSource(data))
		hdr, err := ReadHeader(r)
		require.NoError(t, err)
		assert.Equal(t, binary.ByteOrder(binary.LittleEndian), hdr.Order)
		assert.Equal(t, uint32(5), hdr.DataSize)
		assert.Equal(t, int64(len(data))-5, int64(hdr.DataOffset))
	})

	t.Run("big endian", func(t *testing.T) {
		t.Parallel()
		data := testutil.NewBuilder().Add("a.txt", []byte("hello")).Bytes(binary.BigEndian)
		r := pakio.NewReader(testutil.NewByteSource(data))
		hdr, err := ReadHeader(r)
		require.NoError(t, err)
		assert.Equal(t, binary.ByteOrder(binary.BigEndian), hdr.Order)
		assert.Equal(t, uint32(5), hdr.DataSize)
	})

	t.Run("bad magic", func(t *testing.T) {
		t.Parallel()
		r := pakio.NewReader(testutil.NewByteSource([]byte("ZIP\x00aaaaaaaa")))
		_, err := ReadHeader(r)
		assert.ErrorIs(t, err, pakio.ErrFormat)
	})

	t.Run("too short for header", func(t *testing.T) {
		t.Parallel()
		r := pakio.NewReader(testutil.NewByteSource([]byte("PAK\x00\x01")))
		_, err := ReadHeader(r)
		assert.ErrorIs(t, err, pakio.ErrTruncated)
	})
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("nested tree", func(t *testing.T) {
		t.Parallel()
		data := testutil.NewBuilder().
			Add("readme.txt", []byte("top")).
			Add("gfx/logo.tex", []byte("logo bytes")).
			Add("gfx/ui/cursor.tex", []byte("cursor")).
			Add("sfx/click.ogg", []byte("click!")).
			Bytes(binary.LittleEndian)
		_, tree := parseArchive(t, data)

		require.NotNil(t, tree.Root)
		assert.Empty(t, tree.Root.Name, "root is anonymous")
		assert.Nil(t, tree.Root.Parent)

		require.Len(t, tree.Root.Files, 1)
		require.Len(t, tree.Root.Dirs, 2)
		assert.Equal(t, "gfx", tree.Root.Dirs[0].Name)
		assert.Equal(t, "sfx", tree.Root.Dirs[1].Name)

		gfx := tree.Root.Dirs[0]
		require.Len(t, gfx.Dirs, 1)
		assert.Equal(t, "ui", gfx.Dirs[0].Name)
		assert.Same(t, gfx, gfx.Dirs[0].Parent)

		assert.Equal(t, []string{
			"readme.txt",
			"gfx/logo.tex",
			"gfx/ui/cursor.tex",
			"sfx/click.ogg",
		}, flatPaths(tree), "flat list follows depth-first declaration order")
	})

	t.Run("file fields", func(t *testing.T) {
		t.Parallel()
		content := []byte("hello")
		data := testutil.NewBuilder().Add("a.txt", content).Bytes(binary.LittleEndian)
		_, tree := parseArchive(t, data)

		require.Len(t, tree.Files, 1)
		f := tree.Files[0]
		assert.Equal(t, "a.txt", f.Name)
		assert.Equal(t, uint32(0), f.Offset)
		assert.Equal(t, uint32(len(content)), f.Size)
		assert.Equal(t, crc32.ChecksumIEEE(content), f.Hash)
	})

	t.Run("empty archive", func(t *testing.T) {
		t.Parallel()
		data := testutil.NewBuilder().Bytes(binary.LittleEndian)
		_, tree := parseArchive(t, data)
		assert.Empty(t, tree.Files)
		assert.Empty(t, tree.Root.Dirs)
	})

	t.Run("empty directories", func(t *testing.T) {
		t.Parallel()
		data := testutil.NewBuilder().
			AddDir("empty/nested").
			Add("b.txt", []byte("b")).
			Bytes(binary.LittleEndian)
		_, tree := parseArchive(t, data)

		require.Len(t, tree.Root.Dirs, 1)
		empty := tree.Root.Dirs[0]
		assert.Equal(t, "empty", empty.Name)
		require.Len(t, empty.Dirs, 1)
		assert.Empty(t, empty.Dirs[0].Dirs)
		assert.Equal(t, []string{"b.txt"}, flatPaths(tree))
	})

	t.Run("endianness equivalence", func(t *testing.T) {
		t.Parallel()
		b := testutil.NewBuilder().
			Add("a/b/c.bin", []byte{1, 2, 3}).
			Add("a/d.bin", []byte{4})
		_, le := parseArchive(t, b.Bytes(binary.LittleEndian))
		_, be := parseArchive(t, b.Bytes(binary.BigEndian))

		assert.Equal(t, flatPaths(le), flatPaths(be))
		require.Equal(t, len(le.Files), len(be.Files))
		for i := range le.Files {
			assert.Equal(t, le.Files[i].Offset, be.Files[i].Offset)
			assert.Equal(t, le.Files[i].Size, be.Files[i].Size)
			assert.Equal(t, le.Files[i].Hash, be.Files[i].Hash)
		}
	})
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	t.Run("nonzero root name length", func(t *testing.T) {
		t.Parallel()
		data := testutil.NewBuilder().Add("a.txt", []byte("x")).Bytes(binary.LittleEndian)
		data[HeaderSize] = 1 // root name length

		r := pakio.NewReader(testutil.NewByteSource(data))
		_, err := ReadHeader(r)
		require.NoError(t, err)
		tree, err := Parse(r)
		assert.ErrorIs(t, err, pakio.ErrFormat)
		assert.Nil(t, tree, "no tree may exist after a root violation")
	})

	t.Run("root not a directory", func(t *testing.T) {
		t.Parallel()
		data := testutil.NewBuilder().Add("a.txt", []byte("x")).Bytes(binary.LittleEndian)
		data[HeaderSize+1] = 0 // root directory flag

		r := pakio.NewReader(testutil.NewByteSource(data))
		_, err := ReadHeader(r)
		require.NoError(t, err)
		_, err = Parse(r)
		assert.ErrorIs(t, err, pakio.ErrFormat)
	})

	t.Run("truncated mid-index", func(t *testing.T) {
		t.Parallel()
		full := testutil.NewBuilder().
			Add("dir/file.bin", bytes.Repeat([]byte{0xAB}, 16)).
			Bytes(binary.LittleEndian)

		// Cut inside the file record, well before the trailer.
		data := full[:HeaderSize+10]
		r := pakio.NewReader(testutil.NewByteSource(data))
		_, err := ReadHeader(r)
		require.NoError(t, err)
		_, err = Parse(r)
		assert.ErrorIs(t, err, pakio.ErrTruncated)
	})

	t.Run("invalid utf8 name", func(t *testing.T) {
		t.Parallel()
		data := testutil.NewBuilder().Add("abc.txt", []byte("x")).Bytes(binary.LittleEndian)
		// First entry name starts after root record (6 bytes) + name length byte.
		data[HeaderSize+6+1] = 0xFF

		r := pakio.NewReader(testutil.NewByteSource(data))
		_, err := ReadHeader(r)
		require.NoError(t, err)
		_, err = Parse(r)
		assert.ErrorIs(t, err, pakio.ErrFormat)
	})
}

// TestParseDeepNesting exercises the explicit-stack traversal with a
// nesting depth that would overflow a recursive parser's stack budget.
func TestParseDeepNesting(t *testing.T) {
	t.Parallel()

	const depth = 100_000

	var idx bytes.Buffer
	idx.WriteByte(0) // root name length
	idx.WriteByte(1) // root is a directory
	writeU32(&idx, 1)
	for range depth {
		idx.WriteByte(1)
		idx.WriteByte('d')
		idx.WriteByte(1) // directory
		writeU32(&idx, 1)
	}
	// Innermost directory holds one file.
	idx.WriteByte(1)
	idx.WriteByte('f')
	idx.WriteByte(0) // file
	writeU32(&idx, 0)
	writeU32(&idx, 0)
	writeU32(&idx, 0)
	writeU32(&idx, TrailerMagic)

	var data bytes.Buffer
	writeU32(&data, Magic)
	writeU32(&data, uint32(HeaderSize+idx.Len()))
	writeU32(&data, 0)
	data.Write(idx.Bytes())

	_, tree := parseArchive(t, data.Bytes())
	require.Len(t, tree.Files, 1)

	f := tree.Files[0]
	assert.Equal(t, "f", f.Name)

	var walked int
	for d := f.Parent; d != nil && d.Parent != nil; d = d.Parent {
		walked++
	}
	assert.Equal(t, depth, walked)
}

func TestPath(t *testing.T) {
	t.Parallel()

	data := testutil.NewBuilder().
		Add("a/b/c/file.bin", []byte("x")).
		Bytes(binary.LittleEndian)
	_, tree := parseArchive(t, data)

	require.Len(t, tree.Files, 1)
	assert.Equal(t, "a/b/c/file.bin", tree.Files[0].Path())

	assert.Equal(t, "", tree.Root.Path())
	require.Len(t, tree.Root.Dirs, 1)
	a := tree.Root.Dirs[0]
	assert.Equal(t, "a", a.Path())
	assert.Equal(t, "a/b", a.Dirs[0].Path())
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}
