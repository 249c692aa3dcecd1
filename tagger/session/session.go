// Package session holds the edit state of the file currently under review.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"log"

	"github.com/sv4u/mtag/tagger/lyrics"
	"github.com/sv4u/mtag/tagger/metadata"
	"github.com/sv4u/mtag/tagger/netease"
)

var (
	// ErrOutOfRange is returned when the cursor moves past either end of the
	// file list.
	ErrOutOfRange = errors.New("no more files")
	// ErrNoFile is returned by operations that need an open file.
	ErrNoFile = errors.New("no file open")
)

// Session walks a list of files, keeping the tag container of the current one
// open together with its saved baseline and the pending edit. It is not safe
// for concurrent use.
type Session struct {
	files     []string
	cursor    int
	container *metadata.Container
	baseline  metadata.MusicInfo
	pending   metadata.Fields
}

// New creates a session over files with no file open.
func New(files []string) *Session {
	return &Session{files: append([]string(nil), files...), cursor: -1}
}

// Files returns the file list in review order.
func (s *Session) Files() []string {
	return append([]string(nil), s.files...)
}

// Cursor returns the index last passed to Open, which may be out of range.
func (s *Session) Cursor() int {
	return s.cursor
}

// Open closes the current file and opens file i.
func (s *Session) Open(i int) error {
	if err := s.closeCurrent(); err != nil {
		log.Printf("WARN: tag_close_failed error=%v", err)
	}
	s.cursor = i
	if i < 0 || i >= len(s.files) {
		return ErrOutOfRange
	}

	container, err := metadata.Open(s.files[i])
	if err != nil {
		return err
	}
	info, err := container.Info()
	if err != nil {
		container.Close()
		return err
	}
	s.container = container
	s.baseline = info
	s.pending = info.Fields()
	return nil
}

// OpenPath closes the current file and opens path, which must be in the list.
func (s *Session) OpenPath(path string) error {
	i := s.IndexOf(path)
	if i < 0 {
		return fmt.Errorf("%s: %w", path, ErrOutOfRange)
	}
	return s.Open(i)
}

// IndexOf returns the position of path in the file list, or -1.
func (s *Session) IndexOf(path string) int {
	for i, f := range s.files {
		if f == path {
			return i
		}
	}
	return -1
}

// SetFiles replaces the file list. An open file that is still listed stays
// open with the cursor following it. An open file that is gone is closed and
// the cursor is left so that Move(1) opens the file that took its place.
func (s *Session) SetFiles(files []string) error {
	path, open := s.Current()
	s.files = append([]string(nil), files...)
	if open {
		if i := s.IndexOf(path); i >= 0 {
			s.cursor = i
			return nil
		}
		s.cursor--
		err := s.closeCurrent()
		log.Printf("INFO: session_file_removed file=%s", path)
		s.clampCursor()
		return err
	}
	s.clampCursor()
	return nil
}

func (s *Session) clampCursor() {
	if s.cursor < -1 {
		s.cursor = -1
	}
	if s.cursor > len(s.files) {
		s.cursor = len(s.files)
	}
}

// Move opens the file delta positions from the cursor.
func (s *Session) Move(delta int) error {
	return s.Open(s.cursor + delta)
}

// Current returns the path of the open file.
func (s *Session) Current() (string, bool) {
	if s.container == nil {
		return "", false
	}
	return s.container.Path(), true
}

// Baseline returns the tag values as last read from or written to disk.
func (s *Session) Baseline() metadata.MusicInfo {
	return s.baseline
}

// Pending returns the values Save would write.
func (s *Session) Pending() metadata.Fields {
	return s.pending
}

// Edit overlays the non-empty values of fields onto the pending edit.
func (s *Session) Edit(fields metadata.Fields) error {
	if s.container == nil {
		return ErrNoFile
	}
	overlay(&s.pending, fields)
	return nil
}

// ApplyCandidate overlays a catalog match. A nil or empty lyric result leaves
// the pending lyrics unchanged, as does an empty image.
func (s *Session) ApplyCandidate(song netease.Song, lyric *lyrics.Result, image []byte, url string) error {
	if s.container == nil {
		return ErrNoFile
	}
	fields := metadata.Fields{
		Title:  song.Name,
		Album:  song.Album,
		Artist: song.Artist,
		Image:  image,
		URL:    url,
	}
	if lyric != nil && len(lyric.Lines) > 0 {
		fields.SyncLyrics = lyric.Lines
		fields.UnsyncLyrics = lyric.Text
	}
	overlay(&s.pending, fields)
	return nil
}

// Dirty reports whether the pending edit differs from the baseline.
func (s *Session) Dirty() bool {
	if s.container == nil {
		return false
	}
	return !equalFields(s.pending, s.baseline.Fields())
}

// Save writes the pending edit and returns the fields written.
func (s *Session) Save() (metadata.Fields, error) {
	if s.container == nil {
		return metadata.Fields{}, ErrNoFile
	}
	written := s.pending
	if err := s.container.Save(written); err != nil {
		return metadata.Fields{}, err
	}
	info, err := s.container.Info()
	if err != nil {
		return written, fmt.Errorf("re-read after save: %w", err)
	}
	s.baseline = info
	s.pending = info.Fields()
	log.Printf("INFO: tag_saved file=%s", s.container.Path())
	return written, nil
}

// SaveAndNext saves and opens the next file.
func (s *Session) SaveAndNext() error {
	if _, err := s.Save(); err != nil {
		return err
	}
	return s.Move(1)
}

// Close releases the open file.
func (s *Session) Close() error {
	return s.closeCurrent()
}

func (s *Session) closeCurrent() error {
	if s.container == nil {
		return nil
	}
	err := s.container.Close()
	s.container = nil
	s.baseline = metadata.MusicInfo{}
	s.pending = metadata.Fields{}
	return err
}

func overlay(dst *metadata.Fields, src metadata.Fields) {
	if src.Title != "" {
		dst.Title = src.Title
	}
	if src.Album != "" {
		dst.Album = src.Album
	}
	if src.Artist != "" {
		dst.Artist = src.Artist
	}
	if len(src.Image) > 0 {
		dst.Image = src.Image
	}
	if len(src.SyncLyrics) > 0 {
		dst.SyncLyrics = src.SyncLyrics
	}
	if src.UnsyncLyrics != "" {
		dst.UnsyncLyrics = src.UnsyncLyrics
	}
	if src.URL != "" {
		dst.URL = src.URL
	}
}

func equalFields(a, b metadata.Fields) bool {
	if a.Title != b.Title || a.Album != b.Album || a.Artist != b.Artist ||
		a.UnsyncLyrics != b.UnsyncLyrics || a.URL != b.URL {
		return false
	}
	if !bytes.Equal(a.Image, b.Image) || len(a.SyncLyrics) != len(b.SyncLyrics) {
		return false
	}
	for i := range a.SyncLyrics {
		if a.SyncLyrics[i] != b.SyncLyrics[i] {
			return false
		}
	}
	return true
}
