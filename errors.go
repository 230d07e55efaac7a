package pak

import "github.com/meigma/pak/internal/pakio"

// Errors re-exported from internal packages.
var (
	// ErrFormat is returned when the archive violates the pak wire
	// format: bad magic, a named or non-directory root record, invalid
	// UTF-8 in a name, or a file whose byte range falls outside the
	// archive.
	ErrFormat = pakio.ErrFormat

	// ErrTruncated is returned when the archive ends before a complete
	// record or file range could be read.
	ErrTruncated = pakio.ErrTruncated
)
