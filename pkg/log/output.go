package log

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the optional rotating log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// OpenOutput returns the writer log records go to: base, plus a rotating
// file when opts.Path is set. The returned closer releases the file.
func OpenOutput(base io.Writer, opts FileOptions) (io.Writer, io.Closer) {
	if opts.Path == "" {
		return base, nopCloser{}
	}
	file := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	return io.MultiWriter(base, file), file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
