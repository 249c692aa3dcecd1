package metadata

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// FrameKind enumerates the frames this package reads and writes.
type FrameKind int

const (
	Title FrameKind = iota
	Album
	Artist
	Cover
	SyncLyric
	UnsyncLyric
	SourceURL
)

var frameKindNames = map[FrameKind]string{
	Title:       "Title",
	Album:       "Album",
	Artist:      "Artist",
	Cover:       "Cover",
	SyncLyric:   "SyncLyric",
	UnsyncLyric: "UnsyncLyric",
	SourceURL:   "SourceURL",
}

func (k FrameKind) String() string {
	if name, ok := frameKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("FrameKind(%d)", int(k))
}

// FrameID returns the ID3v2.3 frame id backing the kind.
func (k FrameKind) FrameID() string {
	for _, c := range frameCodecs {
		if c.kind == k {
			return c.id
		}
	}
	return ""
}

// FrameKinds lists every tracked kind in table order.
func FrameKinds() []FrameKind {
	kinds := make([]FrameKind, len(frameCodecs))
	for i, c := range frameCodecs {
		kinds[i] = c.kind
	}
	return kinds
}

// Text frames are written as UTF-16: ID3v2.3 has no UTF-8 encoding.
var textFrameEncoding = id3v2.EncodingUTF16

// Cover art is written as ISO-8859-1 so that players which reject UTF
// picture frames still show it.
var coverFrameEncoding = id3v2.EncodingISO

const coverMimeType = "image/jpeg"

// frameCodec binds a frame kind to its id and the functions that move a value
// between MusicInfo/Fields and an id3v2 frame.
type frameCodec struct {
	kind FrameKind
	id   string
	// decode copies the frame's value into info.
	decode func(f id3v2.Framer, info *MusicInfo) error
	// encode builds the frame for fields, or reports false when the field is absent.
	encode func(fields Fields) (id3v2.Framer, bool)
}

var frameCodecs = []frameCodec{
	textCodec(Title, "TIT2",
		func(i *MusicInfo) *string { return &i.Title },
		func(f Fields) string { return f.Title }),
	textCodec(Album, "TALB",
		func(i *MusicInfo) *string { return &i.Album },
		func(f Fields) string { return f.Album }),
	textCodec(Artist, "TPE1",
		func(i *MusicInfo) *string { return &i.Artist },
		func(f Fields) string { return f.Artist }),
	{kind: Cover, id: "APIC", decode: decodeCover, encode: encodeCover},
	{kind: SyncLyric, id: "SYLT", decode: decodeSyncLyrics, encode: encodeSyncLyrics},
	{kind: UnsyncLyric, id: "USLT", decode: decodeUnsyncLyrics, encode: encodeUnsyncLyrics},
	{kind: SourceURL, id: "WXXX", decode: decodeSourceURL, encode: encodeSourceURL},
}

func textCodec(kind FrameKind, id string, target func(*MusicInfo) *string, source func(Fields) string) frameCodec {
	return frameCodec{
		kind: kind,
		id:   id,
		decode: func(f id3v2.Framer, info *MusicInfo) error {
			tf, ok := f.(id3v2.TextFrame)
			if !ok {
				return fmt.Errorf("unexpected frame type %T", f)
			}
			*target(info) = firstValue(tf.Text)
			return nil
		},
		encode: func(fields Fields) (id3v2.Framer, bool) {
			text := source(fields)
			if text == "" {
				return nil, false
			}
			return id3v2.TextFrame{Encoding: textFrameEncoding, Text: text}, true
		},
	}
}

// firstValue drops the extra values of a multi-value (NUL separated) text frame.
func firstValue(text string) string {
	if i := strings.IndexByte(text, 0); i >= 0 {
		return text[:i]
	}
	return text
}

func decodeCover(f id3v2.Framer, info *MusicInfo) error {
	pf, ok := f.(id3v2.PictureFrame)
	if !ok {
		return fmt.Errorf("unexpected frame type %T", f)
	}
	info.Image = pf.Picture
	return nil
}

func encodeCover(fields Fields) (id3v2.Framer, bool) {
	if len(fields.Image) == 0 {
		return nil, false
	}
	return id3v2.PictureFrame{
		Encoding:    coverFrameEncoding,
		MimeType:    coverMimeType,
		PictureType: id3v2.PTFrontCover,
		Picture:     fields.Image,
	}, true
}

func decodeSyncLyrics(f id3v2.Framer, info *MusicInfo) error {
	switch v := f.(type) {
	case SyncLyricsFrame:
		info.SyncLyrics = v.Lines
	default:
		body, err := rawBody(f)
		if err != nil {
			return err
		}
		frame, err := parseSyncLyricsFrame(body)
		if err != nil {
			return err
		}
		info.SyncLyrics = frame.Lines
	}
	return nil
}

func encodeSyncLyrics(fields Fields) (id3v2.Framer, bool) {
	if len(fields.SyncLyrics) == 0 {
		return nil, false
	}
	return SyncLyricsFrame{
		Encoding:        textFrameEncoding,
		Language:        lyricsLanguage,
		TimestampFormat: syncLyricsTimestampFormat,
		ContentType:     syncLyricsContentType,
		Lines:           fields.SyncLyrics,
	}, true
}

func decodeUnsyncLyrics(f id3v2.Framer, info *MusicInfo) error {
	uf, ok := f.(id3v2.UnsynchronisedLyricsFrame)
	if !ok {
		return fmt.Errorf("unexpected frame type %T", f)
	}
	info.UnsyncLyrics = uf.Lyrics
	return nil
}

func encodeUnsyncLyrics(fields Fields) (id3v2.Framer, bool) {
	if fields.UnsyncLyrics == "" {
		return nil, false
	}
	return id3v2.UnsynchronisedLyricsFrame{
		Encoding: textFrameEncoding,
		Language: lyricsLanguage,
		Lyrics:   fields.UnsyncLyrics,
	}, true
}

func decodeSourceURL(f id3v2.Framer, info *MusicInfo) error {
	switch v := f.(type) {
	case UserURLFrame:
		info.URL = v.URL
	default:
		body, err := rawBody(f)
		if err != nil {
			return err
		}
		frame, err := parseUserURLFrame(body)
		if err != nil {
			return err
		}
		info.URL = frame.URL
	}
	return nil
}

func encodeSourceURL(fields Fields) (id3v2.Framer, bool) {
	if fields.URL == "" {
		return nil, false
	}
	return UserURLFrame{Encoding: textFrameEncoding, URL: fields.URL}, true
}

// rawBody re-serializes a frame id3v2 did not decode (id3v2.UnknownFrame).
func rawBody(f id3v2.Framer) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pickFrame prefers the front cover among several pictures.
func pickFrame(kind FrameKind, frames []id3v2.Framer) id3v2.Framer {
	if kind == Cover {
		for _, f := range frames {
			if pf, ok := f.(id3v2.PictureFrame); ok && pf.PictureType == id3v2.PTFrontCover {
				return f
			}
		}
	}
	return frames[0]
}
