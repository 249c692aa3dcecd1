package scanner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sv4u/mtag/tagger/lyrics"
	"github.com/sv4u/mtag/tagger/metadata"
)

var fakeAudio = append([]byte{0xFF, 0xFB, 0x90, 0x64}, bytes.Repeat([]byte{0x55}, 256)...)

func writeMP3(t *testing.T, dir, name string, fields *metadata.Fields) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, fakeAudio, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	if fields == nil {
		return path
	}
	c, err := metadata.Open(path)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", name, err)
	}
	defer c.Close()
	if err := c.Save(*fields); err != nil {
		t.Fatalf("Save(%s) failed: %v", name, err)
	}
	return path
}

func TestSplitFilename(t *testing.T) {
	tests := []struct {
		path          string
		artist, title string
		ok            bool
	}{
		{"/music/Skillet - Hero.mp3", "Skillet", "Hero", true},
		{"A - B - C.MP3", "A", "B - C", true},
		{"NoSeparator.mp3", "", "", false},
		{"Artist-Title.mp3", "", "", false},
	}
	for _, tt := range tests {
		artist, title, ok := SplitFilename(tt.path)
		if artist != tt.artist || title != tt.title || ok != tt.ok {
			t.Errorf("SplitFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.path, artist, title, ok, tt.artist, tt.title, tt.ok)
		}
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeMP3(t, dir, "b.mp3", nil)
	writeMP3(t, dir, "a.MP3", nil)
	os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte{1}, 0644)
	os.Mkdir(filepath.Join(dir, "sub.mp3"), 0755)

	files, err := List(dir)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	want := []string{filepath.Join(dir, "a.MP3"), filepath.Join(dir, "b.mp3")}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Errorf("Expected %v, got %v", want, files)
	}
}

func TestList_Errors(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "missing"))
	var scanErr *ScanError
	if !errors.As(err, &scanErr) {
		t.Errorf("Expected *ScanError, got %v", err)
	}

	_, err = List(t.TempDir())
	if !errors.Is(err, ErrNoFiles) {
		t.Errorf("Expected ErrNoFiles, got %v", err)
	}
}

func TestScan_OrdersByWorkNeeded(t *testing.T) {
	dir := t.TempDir()
	img := []byte{0xFF, 0xD8, 0xFF}
	sync := []lyrics.Line{{Text: "x", Timestamp: 1000}}

	// complete: cover, valid name, lyrics
	writeMP3(t, dir, "A - Done.mp3", &metadata.Fields{Artist: "A", Title: "Done", Image: img, SyncLyrics: sync})
	// cover and valid name, no lyrics
	writeMP3(t, dir, "A - NoLyric.mp3", &metadata.Fields{Artist: "A", Title: "NoLyric", Image: img})
	// cover, name mismatch
	writeMP3(t, dir, "A - Wrong.mp3", &metadata.Fields{Artist: "B", Title: "Wrong", Image: img, SyncLyrics: sync})
	// nothing at all
	writeMP3(t, dir, "untagged.mp3", nil)

	entries, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	want := []string{"untagged.mp3", "A - Wrong.mp3", "A - NoLyric.mp3", "A - Done.mp3"}
	for i := range want {
		if i >= len(names) || names[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, names)
		}
	}

	done := entries[3]
	if !done.HasImage || !done.HasLyrics || !done.NameValid || done.Info.Title != "Done" {
		t.Errorf("Unexpected entry %+v", done)
	}
	if done.Title != "Done" || done.Artist != "A" || done.Album != "" {
		t.Errorf("Expected tag values on the entry, got title=%q artist=%q album=%q", done.Title, done.Artist, done.Album)
	}
	if wrong := entries[1]; wrong.Artist != "B" || wrong.Title != "Wrong" {
		t.Errorf("Expected tag values of the mismatched file, got %+v", wrong)
	}
}

func TestScan_UnreadableTagKept(t *testing.T) {
	dir := t.TempDir()
	writeMP3(t, dir, "good.mp3", nil)
	bad := filepath.Join(dir, "bad.mp3")
	// ID3v2.2 header, which the tag reader rejects.
	os.WriteFile(bad, append([]byte{'I', 'D', '3', 2, 0, 0, 0, 0, 0, 0}, fakeAudio...), 0644)

	entries, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	var found bool
	for _, e := range entries {
		if e.Name == "bad.mp3" {
			found = true
			var loadErr *metadata.TagLoadError
			if !errors.As(e.Err, &loadErr) {
				t.Errorf("Expected TagLoadError on bad entry, got %v", e.Err)
			}
		}
	}
	if !found {
		t.Error("Expected bad.mp3 to stay in the results")
	}
}

type upperConverter struct{}

func (upperConverter) Convert(text string) string { return "<" + text + ">" }

func TestSearchKey(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/m/Skillet - Hero.mp3", "Hero"},
		{"/m/周杰倫 - 晴天 (Live).mp3", "晴天"},
		{"/m/Just A Title (remix).mp3", "Just A Title"},
	}
	for _, tt := range tests {
		if got := SearchKey(tt.path, Identity{}); got != tt.want {
			t.Errorf("SearchKey(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
	if got := SearchKey("/m/A - B.mp3", upperConverter{}); got != "<B>" {
		t.Errorf("Expected converter to run, got %q", got)
	}
	if got := SearchKey("/m/A - B.mp3", nil); got != "B" {
		t.Errorf("Expected nil converter to be skipped, got %q", got)
	}
}

func TestNewConverter_Disabled(t *testing.T) {
	if _, ok := NewConverter(false).(Identity); !ok {
		t.Error("Expected Identity when conversion is disabled")
	}
	// Enabled falls back to Identity when dictionaries are missing; either way
	// it must return a usable converter.
	if NewConverter(true).Convert("abc") != "abc" {
		t.Error("Expected ASCII text to pass through unchanged")
	}
}

func TestWatcher_DebouncesEvents(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(dir, "A - New.mp3")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, fakeAudio, 0644); err != nil {
			t.Fatal(err)
		}
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	select {
	case ev := <-w.Events():
		if ev.Path != path {
			t.Errorf("Expected event for %s, got %+v", path, ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for watcher event")
	}

	select {
	case ev, ok := <-w.Events():
		if ok {
			t.Errorf("Expected burst to collapse into one event, got extra %+v", ev)
		}
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case _, ok := <-w.Events():
		for ok {
			_, ok = <-w.Events()
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected events channel to close after cancel")
	}
}

func TestNewWatcher_MissingDir(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), 0); err == nil {
		t.Error("Expected error for missing directory")
	}
}
