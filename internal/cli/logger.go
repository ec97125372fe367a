package cli

import (
	"io"

	"gorel/logging"
)

// NewLogger 以配置级别为基准，每个 -v 放宽一级（最低 debug）；quiet 时只输出 error
func NewLogger(w io.Writer, level string, verbose int, quiet bool) logging.Logger {
	lvl := logging.ParseLevel(level)
	if quiet {
		lvl = logging.ErrorLevel
	} else {
		lvl -= logging.Level(verbose)
		if lvl < logging.DebugLevel {
			lvl = logging.DebugLevel
		}
	}
	return logging.NewStdLogger("[relmap]", logging.WithWriter(w), logging.WithLevel(lvl))
}
