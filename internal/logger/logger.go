// Package logger provides leveled diagnostics for the retrieval
// pipeline. Debug, Info and Section trace the pipeline stages and only
// print when --verbose is set; Warn reports degradations the user
// should see (an unreachable enrichment store, a failed token encoding)
// and always prints. Everything goes to stderr so command output stays
// clean for piping.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables pipeline tracing.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether pipeline tracing is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects log output. Defaults to os.Stderr; tests point it
// at a buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// logf writes one tagged line. Caller holds at least a read lock.
func logf(tag, format string, args ...any) {
	fmt.Fprintf(output, tag+" "+format+"\n", args...)
}

// Debug traces a pipeline detail. Verbose only.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		logf("[DEBUG]", format, args...)
	}
}

// Section marks the start of a pipeline stage. Verbose only.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info reports a pipeline milestone. Verbose only.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		logf("[INFO]", format, args...)
	}
}

// Warn reports a degradation. Always printed: a user running without
// --verbose still needs to know when citations or context were reduced.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	logf("[WARN]", format, args...)
}
