package history

import (
	"strings"
	"time"
)

// Edit records one saved tag rewrite.
type Edit struct {
	ID         int64     `json:"id"`
	Path       string    `json:"path"`
	Title      string    `json:"title,omitempty"`
	Artist     string    `json:"artist,omitempty"`
	Album      string    `json:"album,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	HasCover   bool      `json:"has_cover"`
	LyricLines int       `json:"lyric_lines"`
	Frames     []string  `json:"frames"` // frame kinds written
	SavedAt    time.Time `json:"saved_at"`
}

func joinFrames(frames []string) string {
	return strings.Join(frames, ",")
}

func splitFrames(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
