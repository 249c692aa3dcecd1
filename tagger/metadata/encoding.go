package metadata

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ID3v2 text encoding bytes.
const (
	encodingISO     byte = 0
	encodingUTF16   byte = 1
	encodingUTF16BE byte = 2
	encodingUTF8    byte = 3
)

var errMissingTerminator = errors.New("unterminated text field")

func textEncoding(key byte) (encoding.Encoding, error) {
	switch key {
	case encodingISO:
		return charmap.ISO8859_1, nil
	case encodingUTF16:
		// Little endian unless a BOM says otherwise.
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case encodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	case encodingUTF8:
		return unicode.UTF8, nil
	}
	return nil, fmt.Errorf("unknown text encoding %d", key)
}

func decodeText(key byte, b []byte) (string, error) {
	enc, err := textEncoding(key)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func encodeText(key byte, s string) ([]byte, error) {
	enc, err := textEncoding(key)
	if err != nil {
		return nil, err
	}
	return enc.NewEncoder().Bytes([]byte(s))
}

func terminator(key byte) []byte {
	if key == encodingUTF16 || key == encodingUTF16BE {
		return []byte{0, 0}
	}
	return []byte{0}
}

// splitTerminated cuts b at the first terminator of the given encoding.
// UTF-16 terminators are only recognized on 2-byte boundaries.
func splitTerminated(key byte, b []byte) (field, rest []byte, err error) {
	if key == encodingUTF16 || key == encodingUTF16BE {
		for i := 0; i+1 < len(b); i += 2 {
			if b[i] == 0 && b[i+1] == 0 {
				return b[:i], b[i+2:], nil
			}
		}
		return nil, nil, errMissingTerminator
	}
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return nil, nil, errMissingTerminator
	}
	return b[:i], b[i+1:], nil
}

func writeTerminated(buf *bytes.Buffer, key byte, s string) error {
	encoded, err := encodeText(key, s)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	buf.Write(terminator(key))
	return nil
}
