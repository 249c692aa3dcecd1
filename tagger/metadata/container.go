// Package metadata reads and writes the ID3v2 frames mtag manages in MP3 files.
package metadata

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/bogem/id3v2/v2"
	"github.com/sv4u/mtag/tagger/lyrics"
)

// Tags are always persisted as ID3v2.3, the version most players read.
const savedTagVersion = 3

// Container holds the ID3v2 tag of one MP3 file. It is not safe for
// concurrent use and only touches the disk in Save and SaveAs.
type Container struct {
	filePath string
	tag      *id3v2.Tag
}

// Open loads the tag of filePath. A file without an ID3v2 header yields an
// empty container; an unreadable or unsupported tag returns *TagLoadError.
func Open(filePath string) (*Container, error) {
	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return nil, &TagLoadError{Path: filePath, Original: err}
	}
	return &Container{filePath: filePath, tag: tag}, nil
}

// Path returns the backing file path.
func (c *Container) Path() string {
	return c.filePath
}

// Info returns the current value of every tracked frame. Missing frames
// produce empty values.
func (c *Container) Info() (MusicInfo, error) {
	info := MusicInfo{SyncLyrics: []lyrics.Line{}}
	for _, codec := range frameCodecs {
		frames := c.tag.GetFrames(codec.id)
		if len(frames) == 0 {
			continue
		}
		if err := codec.decode(pickFrame(codec.kind, frames), &info); err != nil {
			return MusicInfo{}, &TagLoadError{
				Path:     c.filePath,
				Original: fmt.Errorf("%s frame %s: %w", codec.kind, codec.id, err),
			}
		}
	}
	return info, nil
}

// Has reports whether a frame of the given kind is present.
func (c *Container) Has(kind FrameKind) bool {
	return len(c.tag.GetFrames(kind.FrameID())) > 0
}

// Save merges fields into the tag and rewrites the backing file.
func (c *Container) Save(fields Fields) error {
	c.apply(fields)
	if err := c.tag.Save(); err != nil {
		log.Printf("ERROR: tag_save_failed file=%s error=%v", c.filePath, err)
		return &TagWriteError{Path: c.filePath, Original: err}
	}
	return nil
}

// SaveAs merges fields into the tag and writes tag plus audio to path,
// leaving the backing file unchanged.
func (c *Container) SaveAs(fields Fields, path string) error {
	if path == "" || path == c.filePath {
		return c.Save(fields)
	}
	c.apply(fields)
	if err := c.writeCopy(path); err != nil {
		log.Printf("ERROR: tag_save_failed file=%s error=%v", path, err)
		return &TagWriteError{Path: path, Original: err}
	}
	return nil
}

// Close releases the backing file.
func (c *Container) Close() error {
	return c.tag.Close()
}

// apply replaces the single frame of each kind present in fields.
func (c *Container) apply(fields Fields) {
	c.tag.SetVersion(savedTagVersion)
	c.downgradeEncodings()
	for _, codec := range frameCodecs {
		frame, ok := codec.encode(fields)
		if !ok {
			continue
		}
		c.tag.DeleteFrames(codec.id)
		c.tag.AddFrame(codec.id, frame)
	}
}

// downgradeEncodings rewrites frames kept from a v2.4 tag that use UTF-8,
// which ID3v2.3 does not define, as UTF-16.
func (c *Container) downgradeEncodings() {
	for id, frames := range c.tag.AllFrames() {
		changed := false
		out := make([]id3v2.Framer, len(frames))
		for i, f := range frames {
			out[i] = f
			if g, ok := reencodeUTF8(id, f); ok {
				out[i] = g
				changed = true
			}
		}
		if !changed {
			continue
		}
		c.tag.DeleteFrames(id)
		for _, f := range out {
			c.tag.AddFrame(id, f)
		}
		log.Printf("INFO: tag_frame_reencoded file=%s frame=%s", c.filePath, id)
	}
}

func reencodeUTF8(id string, f id3v2.Framer) (id3v2.Framer, bool) {
	switch v := f.(type) {
	case id3v2.TextFrame:
		if v.Encoding.Key == encodingUTF8 {
			v.Encoding = textFrameEncoding
			return v, true
		}
	case id3v2.UnsynchronisedLyricsFrame:
		if v.Encoding.Key == encodingUTF8 {
			v.Encoding = textFrameEncoding
			return v, true
		}
	case id3v2.PictureFrame:
		if v.Encoding.Key == encodingUTF8 {
			v.Encoding = textFrameEncoding
			return v, true
		}
	case id3v2.CommentFrame:
		if v.Encoding.Key == encodingUTF8 {
			v.Encoding = textFrameEncoding
			return v, true
		}
	case id3v2.UserDefinedTextFrame:
		if v.Encoding.Key == encodingUTF8 {
			v.Encoding = textFrameEncoding
			return v, true
		}
	case SyncLyricsFrame:
		if v.Encoding.Key == encodingUTF8 {
			v.Encoding = textFrameEncoding
			return v, true
		}
	case UserURLFrame:
		if v.Encoding.Key == encodingUTF8 {
			v.Encoding = textFrameEncoding
			return v, true
		}
	case id3v2.UnknownFrame:
		body, err := rawBody(v)
		if err != nil || len(body) == 0 || body[0] != encodingUTF8 {
			return nil, false
		}
		switch id {
		case SyncLyric.FrameID():
			if frame, err := parseSyncLyricsFrame(body); err == nil {
				frame.Encoding = textFrameEncoding
				return frame, true
			}
		case SourceURL.FrameID():
			if frame, err := parseUserURLFrame(body); err == nil {
				frame.Encoding = textFrameEncoding
				return frame, true
			}
		}
	}
	return nil, false
}

func (c *Container) writeCopy(dst string) error {
	src, err := os.Open(c.filePath)
	if err != nil {
		return err
	}
	defer src.Close()

	stat, err := src.Stat()
	if err != nil {
		return err
	}
	audioStart, err := existingTagSize(src)
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, stat.Mode())
	if err != nil {
		return err
	}
	if _, err := c.tag.WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("write tag: %w", err)
	}
	if _, err := src.Seek(audioStart, io.SeekStart); err != nil {
		out.Close()
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("copy audio: %w", err)
	}
	return out.Close()
}

// existingTagSize returns the byte length of the ID3v2 tag at the start of r,
// or 0 when there is none.
func existingTagSize(r io.Reader) (int64, error) {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if n < 10 || string(header[:3]) != "ID3" {
		return 0, nil
	}

	// Synchsafe integer: 7 significant bits per byte.
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	size += 10
	if header[5]&0x10 != 0 {
		// footer present
		size += 10
	}
	return size, nil
}
