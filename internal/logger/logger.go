// Package logger provides leveled stderr logging for the CLI and the
// long-running services. Debug output is gated behind a verbose flag.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	verbose bool
	out     io.Writer = os.Stderr
)

// SetVerbose toggles debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Debug logs a message only when verbose mode is on.
func Debug(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !verbose {
		return
	}
	write("DEBUG", format, args...)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	write("INFO", format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	write("WARN", format, args...)
}

// Error logs an error message.
func Error(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	write("ERROR", format, args...)
}

func write(level, format string, args ...any) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(out, "[%s] %s: %s\n", ts, level, fmt.Sprintf(format, args...))
}
