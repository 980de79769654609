package delivery

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Entry is one undelivered message
type Entry struct {
	Timestamp time.Time `json:"ts"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Redacted  bool      `json:"redacted,omitempty"`
}

// DeadLetterLog persists messages that could not be delivered
type DeadLetterLog interface {
	Append(entry Entry) error
}

// FileLog is an append-only JSON lines file. Appends from concurrent
// goroutines never interleave.
type FileLog struct {
	path string
	mu   sync.Mutex
}

func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

func (l *FileLog) Path() string {
	return l.path
}

// Append writes entry as a single line
func (l *FileLog) Append(entry Entry) error {
	entry.Timestamp = entry.Timestamp.UTC()
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode dead letter: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create dead letter directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open dead letter log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write dead letter: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close dead letter log: %w", err)
	}
	return nil
}

// Drain moves the current log aside and returns its entries, so failures
// appended while they are redelivered land in a fresh file. The moved file
// is kept as an archive and its path returned. A missing log yields no
// entries.
func (l *FileLog) Drain(now time.Time) ([]Entry, string, error) {
	l.mu.Lock()
	archive := fmt.Sprintf("%s.%d", l.path, now.UTC().Unix())
	err := os.Rename(l.path, archive)
	l.mu.Unlock()

	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to archive dead letter log: %w", err)
	}

	entries, err := ReadEntries(archive)
	if err != nil {
		return nil, archive, err
	}
	return entries, archive, nil
}

// ReadEntries parses a dead-letter file. Blank lines are skipped.
func ReadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dead letter log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("invalid dead letter on line %d: %w", lineNo, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dead letter log: %w", err)
	}
	return entries, nil
}

// Redact masks a recipient id, keeping the first and last four characters
func Redact(id string) string {
	r := []rune(id)
	if len(r) <= 8 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:4]) + strings.Repeat("*", len(r)-8) + string(r[len(r)-4:])
}
