package tagger

import (
	"path/filepath"

	"github.com/sv4u/mtag/tagger/lyrics"
	"github.com/sv4u/mtag/tagger/metadata"
)

// EditRequest is a manual edit. Empty fields are left unchanged.
type EditRequest struct {
	Title  string `json:"title"`
	Album  string `json:"album"`
	Artist string `json:"artist"`
	URL    string `json:"url"`
	Lyrics string `json:"lyrics"` // LRC
}

// TagView is the display form of a set of tag values.
type TagView struct {
	Title    string `json:"title"`
	Album    string `json:"album"`
	Artist   string `json:"artist"`
	HasCover bool   `json:"has_cover"`
	LRC      string `json:"lrc"`
	Lyrics   string `json:"lyrics"`
	URL      string `json:"url"`
}

// State is the review state shown by the UI.
type State struct {
	Dir     string  `json:"dir"`
	Index   int     `json:"index"`
	Total   int     `json:"total"`
	Open    bool    `json:"open"`
	Path    string  `json:"path,omitempty"`
	Name    string  `json:"name,omitempty"`
	Dirty   bool    `json:"dirty"`
	Saved   TagView `json:"saved"`
	Pending TagView `json:"pending"`
}

func viewOf(f metadata.Fields) TagView {
	return TagView{
		Title:    f.Title,
		Album:    f.Album,
		Artist:   f.Artist,
		HasCover: len(f.Image) > 0,
		LRC:      lyrics.Encode(f.SyncLyrics),
		Lyrics:   f.UnsyncLyrics,
		URL:      f.URL,
	}
}

func (s *Service) stateLocked() State {
	st := State{
		Dir:   s.dir,
		Index: s.session.Cursor(),
		Total: len(s.entries),
	}
	path, ok := s.session.Current()
	if !ok {
		return st
	}
	st.Open = true
	st.Path = path
	st.Name = filepath.Base(path)
	st.Dirty = s.session.Dirty()
	st.Saved = viewOf(s.session.Baseline().Fields())
	st.Pending = viewOf(s.session.Pending())
	return st
}
