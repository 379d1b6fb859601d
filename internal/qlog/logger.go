// Package qlog provides the small leveled logger used across qpm.
//
// It is intentionally not a global: every component that logs takes a
// *Logger explicitly, the way golang-dep threads its own logger through
// Ctx rather than reaching for a package-level log.Logger.
package qlog

import (
	"fmt"
	"io"
)

// Logger writes diagnostics to Err and confirmations to Out. Either may be
// io.Discard to silence that stream.
type Logger struct {
	Out io.Writer
	Err io.Writer
}

// New returns a Logger writing to the given streams.
func New(out, err io.Writer) *Logger {
	return &Logger{Out: out, Err: err}
}

// Printf writes a normal, user-visible confirmation line.
func (l *Logger) Printf(format string, args ...interface{}) {
	if l == nil || l.Out == nil {
		return
	}
	fmt.Fprintf(l.Out, format, args...)
}

// Errorf writes a diagnostic line. It does not itself construct an error.
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l == nil || l.Err == nil {
		return
	}
	fmt.Fprintf(l.Err, format, args...)
}
