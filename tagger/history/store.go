// Package history keeps an SQLite log of saved tag edits.
package history

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS edits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		artist TEXT NOT NULL DEFAULT '',
		album TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL DEFAULT '',
		has_cover INTEGER NOT NULL DEFAULT 0,
		lyric_lines INTEGER NOT NULL DEFAULT 0,
		frames TEXT NOT NULL DEFAULT '',
		saved_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_edits_path ON edits(path);
	`

const selectColumns = `SELECT id, path, title, artist, album, source_url, has_cover, lyric_lines, frames, saved_at FROM edits`

// Store is the SQLite edit log. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create edits table: %w", err)
	}
	log.Printf("INFO: history_opened path=%s", dbPath)
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends e and returns it with ID and SavedAt filled.
func (s *Store) Record(e Edit) (Edit, error) {
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now()
	}
	e.SavedAt = e.SavedAt.UTC()
	res, err := s.db.Exec(
		`INSERT INTO edits (path, title, artist, album, source_url, has_cover, lyric_lines, frames, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Path, e.Title, e.Artist, e.Album, e.SourceURL, e.HasCover, e.LyricLines, joinFrames(e.Frames), e.SavedAt,
	)
	if err != nil {
		log.Printf("ERROR: history_record_failed path=%s error=%v", e.Path, err)
		return Edit{}, fmt.Errorf("failed to record edit for %s: %w", e.Path, err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return Edit{}, fmt.Errorf("failed to read edit id: %w", err)
	}
	return e, nil
}

// Recent returns up to limit edits, newest first.
func (s *Store) Recent(limit int) ([]Edit, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.query(selectColumns+` ORDER BY saved_at DESC, id DESC LIMIT ?`, limit)
}

// ForPath returns every edit of path, newest first.
func (s *Store) ForPath(path string) ([]Edit, error) {
	return s.query(selectColumns+` WHERE path = ? ORDER BY saved_at DESC, id DESC`, path)
}

func (s *Store) query(q string, args ...interface{}) ([]Edit, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query edits: %w", err)
	}
	defer rows.Close()

	edits := []Edit{}
	for rows.Next() {
		var e Edit
		var frames string
		if err := rows.Scan(&e.ID, &e.Path, &e.Title, &e.Artist, &e.Album, &e.SourceURL,
			&e.HasCover, &e.LyricLines, &frames, &e.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan edit: %w", err)
		}
		e.Frames = splitFrames(frames)
		edits = append(edits, e)
	}
	return edits, rows.Err()
}
