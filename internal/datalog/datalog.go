// Package datalog appends raw telemetry payloads to a text log, one
// timestamped JSON object per line:
//
//	2026-02-05 19:50:26 - {"voltage": 230.1, "totalPower": 1520.5}
//
// The log is the fallback source of energy history when no database is
// available.
package datalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TimeLayout is the timestamp format of a log line, in local time.
const TimeLayout = "2006-01-02 15:04:05"

const separator = " - "

// ErrMalformedLine is returned by ParseLine for lines that are not log
// entries.
var ErrMalformedLine = errors.New("malformed log line")

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time
	Payload json.RawMessage
}

// Logger appends entries to a file. Safe for concurrent use.
type Logger struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New creates the log directory if needed and returns a logger for path.
func New(path string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return &Logger{path: path, now: time.Now}, nil
}

// Path returns the log file location.
func (l *Logger) Path() string { return l.path }

// Write appends payload with the current time. The payload must be a JSON
// value; it is compacted onto a single line.
func (l *Logger) Write(payload []byte) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return fmt.Errorf("payload is not JSON: %w", err)
	}

	line := l.now().Format(TimeLayout) + separator + buf.String() + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open data log: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write data log: %w", err)
	}
	return f.Close()
}

// ParseLine parses one log line.
func ParseLine(line string) (Entry, error) {
	stamp, payload, ok := strings.Cut(strings.TrimSpace(line), separator)
	if !ok || !strings.HasPrefix(payload, "{") {
		return Entry{}, ErrMalformedLine
	}

	t, err := time.ParseInLocation(TimeLayout, stamp, time.Local)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	if !json.Valid([]byte(payload)) {
		return Entry{}, fmt.Errorf("%w: invalid JSON", ErrMalformedLine)
	}
	return Entry{Time: t, Payload: json.RawMessage(payload)}, nil
}

// Tail returns the parseable entries among the last n lines of the log at
// path, oldest first. Malformed lines are skipped. A missing file yields
// no entries and no error.
func Tail(path string, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open data log: %w", err)
	}
	defer f.Close()

	lines := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(lines) == n {
			lines = append(lines[:0], lines[1:]...)
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read data log: %w", err)
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		e, err := ParseLine(line)
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
