// Package bytestream converts between text and the raw byte ids a byte-level
// tokenizer starts from.
package bytestream

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// NumBytes is the number of distinct raw byte ids (0-255).
const NumBytes = 256

// ToIDs returns one id per UTF-8 byte of text.
func ToIDs(text string) []uint32 {
	if text == "" {
		return []uint32{}
	}
	ids := make([]uint32, len(text))
	for i := 0; i < len(text); i++ {
		ids[i] = uint32(text[i])
	}
	return ids
}

// DecodeLossy converts raw bytes back to text. Byte sequences that are not
// valid UTF-8 are replaced with U+FFFD instead of failing the whole decode.
func DecodeLossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
	return string(out)
}

// Prefix returns at most n characters (runes) from the start of text. A
// non-positive n returns text unchanged.
func Prefix(text string, n int) string {
	if n <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
