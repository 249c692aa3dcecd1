package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Query filters the entries returned by ReadEntries. Zero values match
// everything.
type Query struct {
	Level  LogLevel // minimum level
	Search string   // case-insensitive, matched against message, operation and error
	Since  time.Time
	Limit  int
}

const (
	defaultReadLimit = 200
	maxScanLines     = 10000
)

// ReadEntries returns the most recent entries of a JSON log file, newest
// first. A missing file yields no entries. Lines that are not JSON entries,
// such as console output, are skipped.
func ReadEntries(logPath string, q Query) ([]LogEntry, error) {
	file, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []LogEntry{}, nil
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	limit := q.Limit
	if limit <= 0 {
		limit = defaultReadLimit
	}

	// keep a window of the last maxScanLines lines
	lines := make([]string, 0, 256)
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(lines) == maxScanLines {
			lines = append(lines[:0], lines[1:]...)
		}
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	search := strings.ToLower(q.Search)
	entries := make([]LogEntry, 0)
	for i := len(lines) - 1; i >= 0 && len(entries) < limit; i-- {
		var entry LogEntry
		if err := json.Unmarshal([]byte(lines[i]), &entry); err != nil || entry.Level == "" {
			continue
		}
		if q.Level != "" && levelRank[entry.Level] < levelRank[q.Level] {
			continue
		}
		if !q.Since.IsZero() && entry.Timestamp.Before(q.Since) {
			continue
		}
		if search != "" && !entry.matches(search) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (e LogEntry) matches(lowered string) bool {
	for _, s := range []string{e.Message, e.Operation, e.Error} {
		if strings.Contains(strings.ToLower(s), lowered) {
			return true
		}
	}
	return false
}

// ParseLevel maps a level name, case-insensitively, to a LogLevel. WARNING is
// accepted for WARN.
func ParseLevel(name string) (LogLevel, bool) {
	level := LogLevel(strings.ToUpper(strings.TrimSpace(name)))
	if level == "WARNING" {
		level = LogLevelWarn
	}
	_, ok := levelRank[level]
	return level, ok
}
