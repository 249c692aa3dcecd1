// Package lyrics converts between timed LRC text and ordered lyric lines.
package lyrics

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// timecode matches [mm:ss.xx] anywhere on a line. Each group is one or more digits.
	timecode  = regexp.MustCompile(`\[(\d+):(\d+)\.(\d+)\]`)
	lineBreak = regexp.MustCompile(`\r\n|\r|\n`)
)

// Line is one timed lyric line.
type Line struct {
	Text      string `json:"text"`
	Timestamp int    `json:"timestamp"` // milliseconds from track start
}

// Raw is a lyric payload as delivered by a lyric source.
type Raw struct {
	Primary    string
	Translated string
	// NoLyric is set when the source reports that the song has no lyrics at all.
	NoLyric bool
}

// Result is a decoded lyric payload.
type Result struct {
	Lines []Line `json:"lines"`
	Text  string `json:"text"`
	// Found is false only when the source signalled that no lyrics exist.
	// A payload whose lines all failed to match is Found with zero Lines.
	Found bool `json:"found"`
}

// Decode parses raw LRC text into lines sorted by (timestamp, text) and the
// matching plain-text rendering. Lines without a [mm:ss.xx] timecode are dropped.
func Decode(raw Raw, includeTranslation bool) Result {
	if raw.NoLyric {
		return Result{Lines: []Line{}, Text: "", Found: false}
	}

	text := strings.TrimSpace(raw.Primary)
	if includeTranslation {
		if translated := strings.TrimSpace(raw.Translated); translated != "" {
			text += "\n" + translated
		}
	}

	lines := make([]Line, 0)
	for _, src := range lineBreak.Split(text, -1) {
		line, ok := parseLine(src)
		if !ok {
			continue
		}
		lines = append(lines, line)
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Timestamp != lines[j].Timestamp {
			return lines[i].Timestamp < lines[j].Timestamp
		}
		return lines[i].Text < lines[j].Text
	})

	return Result{Lines: lines, Text: Plain(lines), Found: true}
}

// parseLine extracts the text after the last ']' and the timestamp of the
// first timecode on the line.
func parseLine(src string) (Line, bool) {
	m := timecode.FindStringSubmatch(src)
	if m == nil {
		return Line{}, false
	}

	var parts [3]int
	for i := range parts {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			// digit group too large for int
			return Line{}, false
		}
		parts[i] = n
	}

	// The fractional group is multiplied by 10 regardless of its width,
	// matching how the catalog's own client reads these files.
	ts := (parts[0]*60+parts[1])*1000 + parts[2]*10

	return Line{
		Text:      src[strings.LastIndex(src, "]")+1:],
		Timestamp: ts,
	}, true
}

// Encode renders lines as LRC text, one [mm:ss.xx]text line per entry, in the
// given order. Formatting beyond the line text is not preserved.
func Encode(lines []Line) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(FormatTimestamp(line.Timestamp))
		b.WriteString(line.Text)
	}
	return b.String()
}

// FormatTimestamp renders milliseconds as an LRC [mm:ss.xx] timecode.
func FormatTimestamp(ms int) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("[%02d:%02d.%02d]", ms/60000, ms/1000%60, ms%1000/10)
}

// Plain joins the line texts with newlines.
func Plain(lines []Line) string {
	texts := make([]string, len(lines))
	for i, line := range lines {
		texts[i] = line.Text
	}
	return strings.Join(texts, "\n")
}
