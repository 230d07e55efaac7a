// Command unpak extracts a pak game archive into a directory.
//
// Usage:
//
//	unpak [options] archive.pak [output_dir]
//
// The output directory defaults to the archive path with its extension
// stripped plus "_extracted". Structural format errors abort; archives
// with inconsistent-but-parseable headers print warnings and are
// extracted anyway.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/meigma/pak"
)

func main() {
	overwrite := flag.Bool("f", false, "overwrite existing output files")
	verbose := flag.Bool("v", false, "print per-file progress")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		usage()
		os.Exit(2)
	}
	archivePath := flag.Arg(0)
	outDir := flag.Arg(1)
	if outDir == "" {
		outDir = defaultOutputDir(archivePath)
	}

	if err := run(archivePath, outDir, *overwrite, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "unpak: %v\n", err)
		os.Exit(1)
	}
}

func run(archivePath, outDir string, overwrite, verbose bool) error {
	logger := newLogger(os.Stdout, verbose)

	a, err := pak.Open(archivePath, pak.WithLogger(logger))
	if err != nil {
		return err
	}
	defer a.Close()

	var extracted, skipped int
	var written uint64
	opts := []pak.ExtractOption{
		pak.ExtractWithOverwrite(overwrite),
		pak.ExtractWithProgress(func(e pak.ProgressEvent) {
			if e.Skipped {
				skipped++
				if verbose {
					fmt.Printf("skip    %s (exists)\n", e.Path)
				}
				return
			}
			extracted++
			written += uint64(e.Size)
			if verbose {
				fmt.Printf("extract %s (%s)\n", e.Path, humanize.Bytes(uint64(e.Size)))
			}
		}),
	}

	if err := a.Extract(outDir, opts...); err != nil {
		return err
	}

	fmt.Printf("extracted %d of %d files (%s) to %s\n",
		extracted, a.Len(), humanize.Bytes(written), outDir)
	if skipped > 0 {
		fmt.Printf("skipped %d existing files (use -f to overwrite)\n", skipped)
	}
	return nil
}

// newLogger builds a stdout logger: warnings always, debug when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// defaultOutputDir strips the archive extension and appends a fixed
// suffix: "assets.pak" becomes "assets_extracted".
func defaultOutputDir(archivePath string) string {
	base := strings.TrimSuffix(archivePath, filepath.Ext(archivePath))
	return base + "_extracted"
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: unpak [options] archive.pak [output_dir]

Extracts a pak archive into output_dir (default: archive path without
extension plus "_extracted").

options:
`)
	flag.PrintDefaults()
}
