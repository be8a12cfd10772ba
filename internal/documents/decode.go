package documents

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// fallbacks are tried in order when the input is not valid UTF-8. A
// decoding that produces replacement characters counts as a failure.
var fallbacks = []struct {
	name string
	enc  encoding.Encoding
}{
	{"windows-1251", charmap.Windows1251},
	{"windows-1250", charmap.Windows1250},
	{"iso-8859-1", charmap.ISO8859_1},
}

// Decode converts raw text bytes to a string. It never fails: UTF-8 is
// tried first, then regional single-byte code pages, then a lossy UTF-8
// read that drops invalid sequences.
func Decode(data []byte) string {
	s, _ := DecodeWithName(data)
	return s
}

// DecodeWithName is Decode that also reports which encoding was used.
func DecodeWithName(data []byte) (string, string) {
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		data = data[3:]
	}
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if out, err := dec.Bytes(data); err == nil {
			return string(out), "utf-16"
		}
	}
	if utf8.Valid(data) {
		return string(data), "utf-8"
	}
	for _, fb := range fallbacks {
		out, err := fb.enc.NewDecoder().Bytes(data)
		if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
			continue
		}
		return string(out), fb.name
	}
	return strings.ToValidUTF8(string(data), ""), "lossy"
}
