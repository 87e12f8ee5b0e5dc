// Package logger provides verbose logging for repochat.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to trace the ingest and retrieval pipeline.
// Errors are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func printf(always bool, level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose || always {
		fmt.Fprintf(output, "["+level+"] "+format+"\n", args...)
	}
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	printf(false, "DEBUG", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	printf(false, "INFO", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	printf(false, "WARN", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	printf(true, "ERROR", format, args...)
}

// Debugw is Debug with alternating key/value pairs appended to msg.
func Debugw(msg string, keysAndValues ...any) {
	printf(false, "DEBUG", "%s", withFields(msg, keysAndValues))
}

// Infow is Info with alternating key/value pairs appended to msg.
func Infow(msg string, keysAndValues ...any) {
	printf(false, "INFO", "%s", withFields(msg, keysAndValues))
}

// Warnw is Warn with alternating key/value pairs appended to msg.
func Warnw(msg string, keysAndValues ...any) {
	printf(false, "WARN", "%s", withFields(msg, keysAndValues))
}

// Errorw is Error with alternating key/value pairs appended to msg.
func Errorw(msg string, keysAndValues ...any) {
	printf(true, "ERROR", "%s", withFields(msg, keysAndValues))
}

// withFields renders "msg k1=v1 k2=v2". A trailing key without value gets "(missing)".
func withFields(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		b.WriteByte(' ')
		fmt.Fprint(&b, kv[i])
		b.WriteByte('=')
		if i+1 < len(kv) {
			v := fmt.Sprint(kv[i+1])
			if strings.ContainsAny(v, " \t\n\"") {
				v = fmt.Sprintf("%q", v)
			}
			b.WriteString(v)
		} else {
			b.WriteString("(missing)")
		}
	}
	return b.String()
}
