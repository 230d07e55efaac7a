// Package pak reads and extracts pak game archives.
//
// A pak archive is a nested directory/file index followed by a
// contiguous data blob. The index is parsed once into an in-memory
// tree; each file entry addresses its content as an offset/size range
// into the blob.
//
// # Quick start
//
// Extract an archive to a directory:
//
//	a, err := pak.Open("game.pak")
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	err = a.Extract("./game_extracted", pak.ExtractWithOverwrite(true))
//
// Read individual files without extracting, via the fs.FS surface:
//
//	data, err := fs.ReadFile(a, "textures/logo.tex")
//
// # Malformed archives
//
// Structural violations (bad magic, malformed root record, truncation,
// invalid UTF-8 names) abort with ErrFormat or ErrTruncated. Archives
// whose header bookkeeping merely disagrees with their actual layout
// (size, trailer, or index/data boundary mismatches) are reported
// through Warnings and extracted anyway; a partly garbled extraction is
// more useful than none for real archives in the wild.
package pak
