package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mtag.log")
	logger, err := NewLogger(path, "mtag", nil)
	if err != nil {
		t.Fatalf("NewLogger() failed: %v", err)
	}
	logger.Info("scan", "scanned 3 files")
	logger.Warn("select", "cover fetch failed", errors.New("timeout"))
	logger.Error("save", "write failed", errors.New("read-only file system"))
	logger.Close()

	// console lines mixed into the file are skipped
	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	f.WriteString("2024/01/01 10:00:00 INFO: plain text\n")
	f.Close()

	entries, err := ReadEntries(path, Query{})
	if err != nil {
		t.Fatalf("ReadEntries() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Operation != "save" || entries[2].Operation != "scan" {
		t.Errorf("Expected newest first, got %s..%s", entries[0].Operation, entries[2].Operation)
	}

	entries, _ = ReadEntries(path, Query{Level: LogLevelWarn})
	if len(entries) != 2 {
		t.Errorf("Expected 2 entries at WARN and above, got %d", len(entries))
	}

	entries, _ = ReadEntries(path, Query{Search: "TIMEOUT"})
	if len(entries) != 1 || entries[0].Operation != "select" {
		t.Errorf("Expected the select entry, got %+v", entries)
	}

	entries, _ = ReadEntries(path, Query{Limit: 1})
	if len(entries) != 1 {
		t.Errorf("Expected limit 1, got %d", len(entries))
	}

	entries, _ = ReadEntries(path, Query{Since: time.Now().Add(time.Hour)})
	if len(entries) != 0 {
		t.Errorf("Expected no entries in the future, got %d", len(entries))
	}
}

func TestReadEntries_MissingFile(t *testing.T) {
	entries, err := ReadEntries(filepath.Join(t.TempDir(), "none.log"), Query{})
	if err != nil {
		t.Fatalf("ReadEntries() failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"info", LogLevelInfo, true},
		{" Warning ", LogLevelWarn, true},
		{"ERROR", LogLevelError, true},
		{"trace", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseLevel(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
