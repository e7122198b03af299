package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Logger appends timestamped, leveled lines to intake.log so operators
// can inspect agent activity after the fact. It satisfies the logging
// capability agents expect: Info/Warn/Error with alternating key-value
// pairs.
type Logger struct {
	mu   sync.Mutex
	out  io.Writer
	file *os.File
}

// New creates (or reuses) the log file under logDir. An empty logDir
// logs to stderr.
func New(logDir string) (*Logger, error) {
	if logDir == "" {
		return &Logger{out: os.Stderr}, nil
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "intake.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{out: f, file: f}, nil
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Info logs at info level.
func (l *Logger) Info(msg string, kv ...any) { l.write("INFO", msg, kv) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, kv ...any) { l.write("WARN", msg, kv) }

// Error logs at error level.
func (l *Logger) Error(msg string, kv ...any) { l.write("ERROR", msg, kv) }

func (l *Logger) write(level, msg string, kv []any) {
	if l == nil || l.out == nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", time.Now().Format(time.RFC3339), level, strings.TrimRight(msg, "\n"))
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 != 0 {
		fmt.Fprintf(&b, " %v=?", kv[len(kv)-1])
	}
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, b.String())
}
