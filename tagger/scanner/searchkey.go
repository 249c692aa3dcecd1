package scanner

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/liuzl/gocc"
)

// TextConverter normalizes a search keyword.
type TextConverter interface {
	Convert(text string) string
}

// Identity returns text unchanged.
type Identity struct{}

func (Identity) Convert(text string) string {
	return text
}

// openCCConverter converts Traditional Chinese to Simplified Chinese so that
// keywords match the catalog's simplified titles.
type openCCConverter struct {
	cc *gocc.OpenCC
}

// NewOpenCCConverter loads the t2s dictionaries.
func NewOpenCCConverter() (TextConverter, error) {
	cc, err := gocc.New("t2s")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenCC converter: %w", err)
	}
	return &openCCConverter{cc: cc}, nil
}

// NewConverter returns the OpenCC converter when enabled and loadable, and
// Identity otherwise.
func NewConverter(convertTraditional bool) TextConverter {
	if !convertTraditional {
		return Identity{}
	}
	conv, err := NewOpenCCConverter()
	if err != nil {
		log.Printf("WARN: opencc_unavailable error=%v", err)
		return Identity{}
	}
	return conv
}

func (c *openCCConverter) Convert(text string) string {
	out, err := c.cc.Convert(text)
	if err != nil {
		log.Printf("WARN: opencc_convert_failed text=%q error=%v", text, err)
		return text
	}
	return out
}

// SearchKey derives a catalog keyword from a file name: the title part of
// "Artist - Title (Live).mp3" cut at the first "(", or the bare name when the
// file does not follow the convention.
func SearchKey(path string, conv TextConverter) string {
	key := ""
	if _, title, ok := SplitFilename(path); ok {
		key = title
	} else {
		base := filepath.Base(path)
		key = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if i := strings.Index(key, "("); i >= 0 {
		key = key[:i]
	}
	key = strings.TrimSpace(key)
	if conv != nil {
		key = conv.Convert(key)
	}
	return key
}
