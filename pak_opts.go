package pak

import "log/slog"

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger used for warnings and extraction progress.
// By default log output is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// ExtractOption configures an Extract run.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	overwrite bool
	progress  ProgressFunc
}

// ExtractWithOverwrite allows overwriting existing output files.
// By default, existing files are skipped.
func ExtractWithOverwrite(overwrite bool) ExtractOption {
	return func(c *extractConfig) {
		c.overwrite = overwrite
	}
}

// ExtractWithProgress registers a callback invoked once per file entry,
// including skipped ones.
func ExtractWithProgress(fn ProgressFunc) ExtractOption {
	return func(c *extractConfig) {
		c.progress = fn
	}
}
