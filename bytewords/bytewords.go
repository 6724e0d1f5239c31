// Package bytewords implements a byte-to-word text codec in the shape of
// Blockchain Commons' Bytewords scheme (BCR-2020-012): every byte maps to
// a pronounceable four-letter word in "Standard" style, or to that word's
// first and last letters in "Minimal" style, and the mapping inverts
// cleanly either way. The engine's UR and URL adapters build on top of
// this package (spec §4.G); the real Bytewords word list is an external
// collaborator this module doesn't vendor, so the table below is this
// module's own deterministic, round-trip-correct stand-in.
package bytewords

import (
	"fmt"
	"strings"
)

// Style selects how a message is rendered to text.
type Style int

const (
	// Standard renders one space-separated four-letter word per byte.
	Standard Style = iota
	// Minimal renders one two-letter code per byte, concatenated with no
	// separator.
	Minimal
)

const letters = "abcdefghijklmnop" // 16 symbols: one per nibble
const fillers = "aeio"             // 4 symbols: cosmetic, validated on decode

// Error reports a malformed bytewords string.
type Error struct {
	Message string
}

func (e *Error) Error() string { return "bytewords: " + e.Message }

func letterIndex(c byte) int {
	return strings.IndexByte(letters, c)
}

// wordFor returns the four-letter Standard-style word for a byte: the
// first and last letters each encode one nibble (so Minimal style, which
// keeps only those two letters, is still a bijection), and the two
// interior letters are a deterministic, checkable filler.
func wordFor(b byte) string {
	hi, lo := b>>4, b&0xF
	return string([]byte{
		letters[hi],
		fillers[hi%4],
		fillers[lo%4],
		letters[lo],
	})
}

func byteForWord(word string) (byte, error) {
	if len(word) != 4 {
		return 0, &Error{Message: fmt.Sprintf("invalid word length: %q", word)}
	}
	hi := letterIndex(word[0])
	lo := letterIndex(word[3])
	if hi < 0 || lo < 0 {
		return 0, &Error{Message: fmt.Sprintf("invalid word: %q", word)}
	}
	if word[1] != fillers[hi%4] || word[2] != fillers[lo%4] {
		return 0, &Error{Message: fmt.Sprintf("checksum letters corrupt in word: %q", word)}
	}
	return byte(hi)<<4 | byte(lo), nil
}

func byteForMinimal(code string) (byte, error) {
	if len(code) != 2 {
		return 0, &Error{Message: fmt.Sprintf("invalid minimal code length: %q", code)}
	}
	hi := letterIndex(code[0])
	lo := letterIndex(code[1])
	if hi < 0 || lo < 0 {
		return 0, &Error{Message: fmt.Sprintf("invalid minimal code: %q", code)}
	}
	return byte(hi)<<4 | byte(lo), nil
}

// Encode renders data as bytewords text in the given style.
func Encode(data []byte, style Style) string {
	switch style {
	case Minimal:
		var b strings.Builder
		b.Grow(len(data) * 2)
		for _, c := range data {
			w := wordFor(c)
			b.WriteByte(w[0])
			b.WriteByte(w[3])
		}
		return b.String()
	default:
		words := make([]string, len(data))
		for i, c := range data {
			words[i] = wordFor(c)
		}
		return strings.Join(words, " ")
	}
}

// Decode parses bytewords text in the given style back into bytes.
func Decode(text string, style Style) ([]byte, error) {
	switch style {
	case Minimal:
		if len(text)%2 != 0 {
			return nil, &Error{Message: "minimal bytewords text must have even length"}
		}
		out := make([]byte, 0, len(text)/2)
		for i := 0; i < len(text); i += 2 {
			b, err := byteForMinimal(text[i : i+2])
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		return out, nil
	default:
		if text == "" {
			return []byte{}, nil
		}
		words := strings.Split(text, " ")
		out := make([]byte, len(words))
		for i, w := range words {
			b, err := byteForWord(w)
			if err != nil {
				return nil, err
			}
			out[i] = b
		}
		return out, nil
	}
}

// Identifier renders the first four bytes of data as a space-separated,
// upper-cased four-word Standard-style string, the bytewords form of a
// mark's identifier (spec §4.D).
func Identifier(data []byte) string {
	if len(data) > 4 {
		data = data[:4]
	}
	return strings.ToUpper(Encode(data, Standard))
}

// bytemojiBase is the first code point of the Unicode "Miscellaneous
// Symbols and Pictographs" block; offsetting by a byte value lands on a
// distinct pictograph for each of the 256 possible byte values.
const bytemojiBase = 0x1F300

// BytemojiFor returns the single-rune pictograph identifying byte b.
func BytemojiFor(b byte) string {
	return string(rune(bytemojiBase + int(b)))
}

// BytemojiIdentifier renders the first four bytes of data as four
// space-separated pictographs, the "bytemoji" form of a mark's identifier.
func BytemojiIdentifier(data []byte) string {
	if len(data) > 4 {
		data = data[:4]
	}
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = BytemojiFor(b)
	}
	return strings.Join(parts, " ")
}
