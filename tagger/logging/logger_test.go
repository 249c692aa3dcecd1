package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func decodeLines(t *testing.T, data []byte) []LogEntry {
	t.Helper()
	var entries []LogEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var entry LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("Invalid JSON line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "mtag.log")
	var mirror bytes.Buffer

	logger, err := NewLogger(logPath, "test-service", &mirror)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	logger.Info("scan", "scanned directory")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !bytes.Equal(data, mirror.Bytes()) {
		t.Error("Expected mirror writer to receive the same lines as the file")
	}
	entries := decodeLines(t, data)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Service != "test-service" || entries[0].Operation != "scan" || entries[0].Level != LogLevelInfo {
		t.Errorf("Unexpected entry %+v", entries[0])
	}

	// Writes after Close are dropped rather than panicking.
	logger.Info("scan", "late")
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "svc")

	logger.Debug("op", "hidden")
	logger.Info("op", "info")
	logger.Warn("op", "warn", nil)
	logger.Error("op", "error", errors.New("boom"))

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries (debug filtered), got %d", len(entries))
	}
	if entries[2].Error != "boom" {
		t.Errorf("Expected error 'boom', got %q", entries[2].Error)
	}

	buf.Reset()
	logger.SetLevel(LogLevelDebug)
	logger.Debug("op", "shown")
	if !strings.Contains(buf.String(), `"level":"DEBUG"`) {
		t.Errorf("Expected debug entry, got %s", buf.String())
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "svc")

	logger.Log(LogLevelInfo, "save", "saved", nil, map[string]interface{}{"path": "a.mp3", "frames": 3})
	logger.Log(LogLevelInfo, "save", "bad fields", nil, map[string]interface{}{"ch": make(chan int)})

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Fields["path"] != "a.mp3" {
		t.Errorf("Expected path field, got %v", entries[0].Fields)
	}
	if entries[1].Fields != nil || !strings.Contains(entries[1].Error, "fields dropped") {
		t.Errorf("Expected unencodable fields to be dropped, got %+v", entries[1])
	}
}

func TestLoggerConcurrent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "svc")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Infof("op", "worker %d line %d", n, j)
			}
		}(i)
	}
	wg.Wait()

	if entries := decodeLines(t, buf.Bytes()); len(entries) != 200 {
		t.Errorf("Expected 200 entries, got %d", len(entries))
	}
}
