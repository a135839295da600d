package pipeline

import (
	"io"
	"log"
	"sync/atomic"
)

// Three streams: ops for conditions an operator acts on, diag for per-run
// and per-segment totals, trace for one line per classified frame. Workers
// log concurrently, so the loggers are swapped atomically.
var (
	opsLogger   atomic.Pointer[log.Logger]
	diagLogger  atomic.Pointer[log.Logger]
	traceLogger atomic.Pointer[log.Logger]
)

// SetLogWriters configures the three logging streams for the pipeline package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger.Store(newLogger("[Pipeline] ", ops))
	diagLogger.Store(newLogger("[Pipeline] ", diag))
	traceLogger.Store(newLogger("[Pipeline trace] ", trace))
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func logTo(l *atomic.Pointer[log.Logger], format string, args []any) {
	if lg := l.Load(); lg != nil {
		lg.Printf(format, args...)
	}
}

// opsf: failures, short reads, skipped output, backend fallbacks.
func opsf(format string, args ...any) { logTo(&opsLogger, format, args) }

// diagf: frame counts, plans, per-segment totals.
func diagf(format string, args ...any) { logTo(&diagLogger, format, args) }

// tracef: per-frame decisions.
func tracef(format string, args ...any) { logTo(&traceLogger, format, args) }
