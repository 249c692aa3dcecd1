// Package scanner lists the MP3 files of a music directory and ranks them by
// how much tagging work they still need.
package scanner

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sv4u/mtag/tagger/metadata"
)

// ErrNoFiles is returned when a directory holds no MP3 files.
var ErrNoFiles = errors.New("no mp3 files in directory")

// ScanError represents a directory that could not be listed.
type ScanError struct {
	Dir      string
	Original error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("Scan error: %s: %v", e.Dir, e.Original)
}

func (e *ScanError) Unwrap() error {
	return e.Original
}

// filenameSeparator splits "Artist - Title.mp3".
const filenameSeparator = " - "

// Entry is one scanned file.
type Entry struct {
	Path      string             `json:"path"`
	Name      string             `json:"name"`
	Title     string             `json:"title"`
	Artist    string             `json:"artist"`
	Album     string             `json:"album"`
	Info      metadata.MusicInfo `json:"-"`
	HasImage  bool               `json:"has_image"`
	HasLyrics bool               `json:"has_lyrics"`
	NameValid bool               `json:"name_valid"`
	Err       error              `json:"-"`
}

// IsMP3 reports whether path has a .mp3 extension, ignoring case.
func IsMP3(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mp3")
}

// SplitFilename parses the "Artist - Title.mp3" naming convention.
func SplitFilename(path string) (artist, title string, ok bool) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	artist, title, ok = strings.Cut(base, filenameSeparator)
	if !ok {
		return "", "", false
	}
	return artist, title, true
}

// List returns the MP3 files directly inside dir, sorted by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &ScanError{Dir: dir, Original: err}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsMP3(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	sort.Strings(files)
	return files, nil
}

// Scan reads the tag of every MP3 in dir. Files missing a cover, with a name
// that disagrees with their tags, or without synced lyrics sort first.
// A file whose tag cannot be read is kept with Err set.
func Scan(dir string) ([]Entry, error) {
	files, err := List(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(files))
	for _, file := range files {
		entries = append(entries, inspect(file))
	}
	SortByWork(entries)

	log.Printf("INFO: directory_scanned dir=%s files=%d", dir, len(entries))
	return entries, nil
}

// SortByWork orders entries by (HasImage, NameValid, HasLyrics) with false
// first, keeping name order among equals.
func SortByWork(entries []Entry) {
	rank := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.HasImage != b.HasImage {
			return rank(a.HasImage) < rank(b.HasImage)
		}
		if a.NameValid != b.NameValid {
			return rank(a.NameValid) < rank(b.NameValid)
		}
		return rank(a.HasLyrics) < rank(b.HasLyrics)
	})
}

func inspect(path string) Entry {
	entry := Entry{Path: path, Name: filepath.Base(path)}

	container, err := metadata.Open(path)
	if err != nil {
		log.Printf("WARN: tag_unreadable file=%s error=%v", path, err)
		entry.Err = err
		return entry
	}
	defer container.Close()

	info, err := container.Info()
	if err != nil {
		log.Printf("WARN: tag_unreadable file=%s error=%v", path, err)
		entry.Err = err
		return entry
	}

	entry.SetInfo(info)
	return entry
}

// SetInfo replaces the tag values of e and the flags derived from them.
func (e *Entry) SetInfo(info metadata.MusicInfo) {
	e.Info = info
	e.Title = info.Title
	e.Artist = info.Artist
	e.Album = info.Album
	e.HasImage = len(info.Image) > 0
	e.HasLyrics = len(info.SyncLyrics) > 0
	e.NameValid = NameMatches(e.Path, info)
	e.Err = nil
}

// NameMatches reports whether the file name agrees with the artist and title
// tags.
func NameMatches(path string, info metadata.MusicInfo) bool {
	artist, title, ok := SplitFilename(path)
	return ok && artist == info.Artist && title == info.Title
}
