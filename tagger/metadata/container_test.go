package metadata

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/sv4u/mtag/tagger/lyrics"
)

// fakeAudio is a stand-in MPEG payload; the tag layer never decodes it.
var fakeAudio = append([]byte{0xFF, 0xFB, 0x90, 0x64}, bytes.Repeat([]byte{0x55}, 512)...)

func writeUntagged(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Artist - Song.mp3")
	if err := os.WriteFile(path, fakeAudio, 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func openOrFail(t *testing.T, path string) *Container {
	t.Helper()
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", path, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func infoOrFail(t *testing.T, c *Container) MusicInfo {
	t.Helper()
	info, err := c.Info()
	if err != nil {
		t.Fatalf("Info() failed: %v", err)
	}
	return info
}

func TestOpen_Untagged(t *testing.T) {
	c := openOrFail(t, writeUntagged(t))
	info := infoOrFail(t, c)

	if info.Title != "" || info.Album != "" || info.Artist != "" || info.UnsyncLyrics != "" || info.URL != "" {
		t.Errorf("Expected empty text fields, got %+v", info)
	}
	if info.Image != nil {
		t.Error("Expected nil image")
	}
	if info.SyncLyrics == nil || len(info.SyncLyrics) != 0 {
		t.Errorf("Expected empty sync lyrics slice, got %#v", info.SyncLyrics)
	}
}

func TestOpen_CorruptTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.mp3")
	// ID3v2.2 header: the tag layer cannot read it.
	data := append([]byte("ID3\x02\x00\x00\x00\x00\x00\x20"), fakeAudio...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	_, err := Open(path)
	if err == nil {
		t.Fatal("Expected error for corrupt tag")
	}
	var loadErr *TagLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected *TagLoadError, got %T: %v", err, err)
	}
	if loadErr.Path != path {
		t.Errorf("Expected path %s, got %s", path, loadErr.Path)
	}
}

func TestOpen_FrameOverflowsTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overflow.mp3")
	// ID3v2.3 tag of 20 bytes whose TIT2 frame claims a 64 byte body.
	tag := []byte("ID3\x03\x00\x00\x00\x00\x00\x14")
	tag = append(tag, []byte("TIT2\x00\x00\x00\x40\x00\x00")...)
	tag = append(tag, []byte("\x00abcdefghi")...)
	if err := os.WriteFile(path, append(tag, fakeAudio...), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	_, err := Open(path)
	var loadErr *TagLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected *TagLoadError, got %T: %v", err, err)
	}
	if !errors.Is(err, id3v2.ErrBodyOverflow) {
		t.Errorf("Expected frame overflow cause, got %v", err)
	}
	if loadErr.Path != path {
		t.Errorf("Expected path %s, got %s", path, loadErr.Path)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.mp3"))
	var loadErr *TagLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected *TagLoadError, got %T: %v", err, err)
	}
}

func TestSave_AllFields(t *testing.T) {
	path := writeUntagged(t)
	fields := Fields{
		Title:        "晴天",
		Album:        "叶惠美",
		Artist:       "周杰伦",
		Image:        []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3},
		SyncLyrics:   []lyrics.Line{{Text: "故事的小黄花", Timestamp: 29040}, {Text: "从出生那年就飘着", Timestamp: 32500}},
		UnsyncLyrics: "故事的小黄花\n从出生那年就飘着",
		URL:          "https://music.163.com/#/song?id=186016",
	}

	c := openOrFail(t, path)
	if err := c.Save(fields); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	_ = c.Close()

	info := infoOrFail(t, openOrFail(t, path))
	if !reflect.DeepEqual(info.Fields(), fields) {
		t.Errorf("Round trip mismatch:\nwant %+v\ngot  %+v", fields, info.Fields())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data[:4]) != "ID3\x03" {
		t.Errorf("Expected ID3v2.3 header, got %q", data[:4])
	}
	if !bytes.HasSuffix(data, fakeAudio) {
		t.Error("Audio payload was not preserved after the tag")
	}
}

func TestSave_FrameEncodings(t *testing.T) {
	path := writeUntagged(t)
	c := openOrFail(t, path)
	if err := c.Save(Fields{Title: "Title", Image: []byte{1, 2, 3}}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	_ = c.Close()

	reopened := openOrFail(t, path)
	pics := reopened.tag.GetFrames("APIC")
	if len(pics) != 1 {
		t.Fatalf("Expected 1 picture frame, got %d", len(pics))
	}
	pic, ok := pics[0].(id3v2.PictureFrame)
	if !ok {
		t.Fatalf("Expected PictureFrame, got %T", pics[0])
	}
	if pic.Encoding.Key != id3v2.EncodingISO.Key {
		t.Errorf("Expected ISO-8859-1 cover encoding, got %d", pic.Encoding.Key)
	}
	if pic.MimeType != "image/jpeg" || pic.PictureType != id3v2.PTFrontCover {
		t.Errorf("Unexpected cover frame: mime=%s type=%d", pic.MimeType, pic.PictureType)
	}

	if key := reopened.tag.GetTextFrame("TIT2").Encoding.Key; key != id3v2.EncodingUTF16.Key {
		t.Errorf("Expected UTF-16 title encoding, got %d", key)
	}
}

func TestSave_DowngradesUTF8Frames(t *testing.T) {
	path := writeUntagged(t)
	v4, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("id3v2.Open() failed: %v", err)
	}
	v4.SetVersion(4)
	v4.AddTextFrame("TALB", id3v2.EncodingUTF8, "叶惠美")
	v4.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
		Encoding: id3v2.EncodingUTF8,
		Language: "chi",
		Lyrics:   "晴天",
	})
	if err := v4.Save(); err != nil {
		t.Fatalf("Failed to write v2.4 fixture: %v", err)
	}
	v4.Close()

	c := openOrFail(t, path)
	if err := c.Save(Fields{Title: "晴天"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	_ = c.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if data[3] != 3 {
		t.Fatalf("Expected ID3v2.3 header, got version %d", data[3])
	}
	for _, id := range []string{"TALB", "USLT"} {
		i := bytes.Index(data, []byte(id))
		if i < 0 {
			t.Fatalf("Expected %s frame in saved tag", id)
		}
		if key := data[i+10]; key != id3v2.EncodingUTF16.Key {
			t.Errorf("Expected %s encoding %d, got %d", id, id3v2.EncodingUTF16.Key, key)
		}
	}

	info := infoOrFail(t, openOrFail(t, path))
	if info.Album != "叶惠美" || info.UnsyncLyrics != "晴天" || info.Title != "晴天" {
		t.Errorf("Expected values kept across the downgrade, got %+v", info)
	}
}

func TestSave_MergeKeepsOmittedFields(t *testing.T) {
	path := writeUntagged(t)
	c := openOrFail(t, path)
	if err := c.Save(Fields{Title: "Old", Artist: "Someone", UnsyncLyrics: "la la"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := c.Save(Fields{Album: "New Album", Title: "New"}); err != nil {
		t.Fatalf("Second Save() failed: %v", err)
	}
	if err := c.Save(Fields{}); err != nil {
		t.Fatalf("Empty Save() failed: %v", err)
	}
	_ = c.Close()

	info := infoOrFail(t, openOrFail(t, path))
	if info.Title != "New" {
		t.Errorf("Expected title to be replaced, got %q", info.Title)
	}
	if info.Artist != "Someone" || info.UnsyncLyrics != "la la" {
		t.Errorf("Omitted fields changed: %+v", info)
	}
	if info.Album != "New Album" {
		t.Errorf("Expected album to be set, got %q", info.Album)
	}
}

func TestSave_ReplacesSingleFrame(t *testing.T) {
	path := writeUntagged(t)
	c := openOrFail(t, path)
	for _, img := range [][]byte{{1}, {2, 2}} {
		if err := c.Save(Fields{Image: img, SyncLyrics: []lyrics.Line{{Text: "x", Timestamp: len(img)}}}); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
	}
	_ = c.Close()

	reopened := openOrFail(t, path)
	for _, id := range []string{"APIC", "SYLT"} {
		if n := len(reopened.tag.GetFrames(id)); n != 1 {
			t.Errorf("Expected exactly one %s frame, got %d", id, n)
		}
	}
	info := infoOrFail(t, reopened)
	if !bytes.Equal(info.Image, []byte{2, 2}) {
		t.Errorf("Expected latest image, got %v", info.Image)
	}
}

func TestSaveAs_LeavesSourceUnchanged(t *testing.T) {
	src := writeUntagged(t)
	dst := filepath.Join(t.TempDir(), "copy.mp3")

	c := openOrFail(t, src)
	if err := c.Save(Fields{Title: "Original"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	before, _ := os.ReadFile(src)

	if err := c.SaveAs(Fields{Artist: "Copy Artist"}, dst); err != nil {
		t.Fatalf("SaveAs() failed: %v", err)
	}
	after, _ := os.ReadFile(src)
	if !bytes.Equal(before, after) {
		t.Error("SaveAs modified the source file")
	}

	info := infoOrFail(t, openOrFail(t, dst))
	if info.Title != "Original" || info.Artist != "Copy Artist" {
		t.Errorf("Unexpected copy info: %+v", info)
	}
	data, _ := os.ReadFile(dst)
	if !bytes.HasSuffix(data, fakeAudio) {
		t.Error("Audio payload missing from copy")
	}
	if bytes.Count(data, []byte("ID3")) != 1 {
		t.Error("Copy should contain exactly one tag header")
	}
}

func TestSave_WriteError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	path := filepath.Join(dir, "song.mp3")
	if err := os.WriteFile(path, fakeAudio, 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	c := openOrFail(t, path)
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("Failed to remove dir: %v", err)
	}

	err := c.Save(Fields{Title: "x"})
	var writeErr *TagWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Expected *TagWriteError, got %T: %v", err, err)
	}
}

func TestInfo_CorruptFrameBody(t *testing.T) {
	c := openOrFail(t, writeUntagged(t))
	c.tag.AddFrame("SYLT", id3v2.UnknownFrame{Body: []byte{0, 'e', 'n', 'g', 2, 1, 0, 'a', 'b'}})

	_, err := c.Info()
	var loadErr *TagLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected *TagLoadError, got %T: %v", err, err)
	}
}

func TestInfo_ReadsForeignFrames(t *testing.T) {
	c := openOrFail(t, writeUntagged(t))
	// SYLT written by another tagger: ISO-8859-1, non-empty descriptor.
	sylt := []byte{0, 'e', 'n', 'g', 2, 1}
	sylt = append(sylt, "desc\x00hello\x00"...)
	sylt = append(sylt, 0, 0, 0x03, 0xE8)
	c.tag.AddFrame("SYLT", id3v2.UnknownFrame{Body: sylt})
	c.tag.AddFrame("WXXX", id3v2.UnknownFrame{Body: []byte("\x00src\x00http://example.com/a\x00")})
	c.tag.AddFrame("TIT2", id3v2.TextFrame{Encoding: id3v2.EncodingUTF8, Text: "first\x00second"})

	info := infoOrFail(t, c)
	want := []lyrics.Line{{Text: "hello", Timestamp: 1000}}
	if !reflect.DeepEqual(info.SyncLyrics, want) {
		t.Errorf("Expected %+v, got %+v", want, info.SyncLyrics)
	}
	if info.URL != "http://example.com/a" {
		t.Errorf("Unexpected URL %q", info.URL)
	}
	if info.Title != "first" {
		t.Errorf("Expected first value of multi-value frame, got %q", info.Title)
	}
}

func TestFrameKinds(t *testing.T) {
	kinds := FrameKinds()
	if len(kinds) != 7 {
		t.Fatalf("Expected 7 frame kinds, got %d", len(kinds))
	}
	ids := map[FrameKind]string{
		Title: "TIT2", Album: "TALB", Artist: "TPE1", Cover: "APIC",
		SyncLyric: "SYLT", UnsyncLyric: "USLT", SourceURL: "WXXX",
	}
	for kind, id := range ids {
		if got := kind.FrameID(); got != id {
			t.Errorf("%s: expected %s, got %s", kind, id, got)
		}
	}
	if FrameKind(42).String() != "FrameKind(42)" {
		t.Errorf("Unexpected name for unknown kind: %s", FrameKind(42))
	}
}

func TestHas(t *testing.T) {
	c := openOrFail(t, writeUntagged(t))
	if c.Has(Title) {
		t.Error("Untagged file should not have a title")
	}
	c.apply(Fields{Title: "x"})
	if !c.Has(Title) {
		t.Error("Expected title after apply")
	}
	if c.Has(Cover) {
		t.Error("Cover should still be absent")
	}
}

func TestFields_Kinds(t *testing.T) {
	if kinds := (Fields{}).Kinds(); len(kinds) != 0 {
		t.Errorf("Expected no kinds for empty fields, got %v", kinds)
	}
	kinds := Fields{Title: "t", Image: []byte{1}, URL: "u"}.Kinds()
	want := []FrameKind{Title, Cover, SourceURL}
	if len(kinds) != len(want) {
		t.Fatalf("Expected %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, kinds)
		}
	}
}
