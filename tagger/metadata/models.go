package metadata

import "github.com/sv4u/mtag/tagger/lyrics"

// MusicInfo is a read-only snapshot of the tracked frames of one file.
type MusicInfo struct {
	Title        string        `json:"title"`
	Album        string        `json:"album"`
	Artist       string        `json:"artist"`
	Image        []byte        `json:"image,omitempty"`
	UnsyncLyrics string        `json:"unsync_lyrics"`
	SyncLyrics   []lyrics.Line `json:"sync_lyrics"`
	URL          string        `json:"url"`
}

// Fields is a partial set of values to write. A zero-valued field is absent
// and leaves the existing frame untouched.
type Fields struct {
	Title        string        `json:"title,omitempty"`
	Album        string        `json:"album,omitempty"`
	Artist       string        `json:"artist,omitempty"`
	Image        []byte        `json:"image,omitempty"`
	SyncLyrics   []lyrics.Line `json:"sync_lyrics,omitempty"`
	UnsyncLyrics string        `json:"unsync_lyrics,omitempty"`
	URL          string        `json:"url,omitempty"`
}

// IsEmpty reports whether no field is present.
func (f Fields) IsEmpty() bool {
	return f.Title == "" && f.Album == "" && f.Artist == "" && len(f.Image) == 0 &&
		len(f.SyncLyrics) == 0 && f.UnsyncLyrics == "" && f.URL == ""
}

// Fields returns the snapshot as a field set, e.g. to seed a pending edit.
func (i MusicInfo) Fields() Fields {
	return Fields{
		Title:        i.Title,
		Album:        i.Album,
		Artist:       i.Artist,
		Image:        i.Image,
		SyncLyrics:   i.SyncLyrics,
		UnsyncLyrics: i.UnsyncLyrics,
		URL:          i.URL,
	}
}

// Kinds lists the frame kinds present in f, in table order.
func (f Fields) Kinds() []FrameKind {
	kinds := []FrameKind{}
	for _, c := range frameCodecs {
		if _, ok := c.encode(f); ok {
			kinds = append(kinds, c.kind)
		}
	}
	return kinds
}
