// Package field extracts and decodes fixed-width fields from raw header blocks.
//
// Every field is described by a Span (offset and width). Extraction is bounds
// checked, so a Span never reads outside the block it is applied to.
package field

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Span is a fixed-offset field within a block.
type Span struct {
	Off int
	Len int
}

// End returns the offset one past the last byte of the span.
func (s Span) End() int {
	return s.Off + s.Len
}

// Slice returns the bytes of b covered by the span. Portions of the span that
// fall outside b are omitted, so a short b yields a shorter (possibly empty) slice.
func (s Span) Slice(b []byte) []byte {
	if s.Off < 0 || s.Len <= 0 || s.Off >= len(b) {
		return nil
	}
	end := s.End()
	if end > len(b) {
		end = len(b)
	}
	return b[s.Off:end]
}

// octalPad is the set of padding bytes tolerated around an octal number.
const octalPad = "\x00 \t\n\v\f\r"

// Octal decodes an octal ASCII numeric field.
//
// Surrounding NUL and whitespace padding is trimmed. Anything that does not
// parse as base-8 after trimming (empty, non-octal digits, overflow) decodes
// to zero.
func Octal(b []byte) uint64 {
	v, ok := ParseOctal(b)
	if !ok {
		return 0
	}
	return v
}

// ParseOctal is the checked form of Octal. It reports false for fields that
// are empty after trimming or contain anything but octal digits.
func ParseOctal(b []byte) (uint64, bool) {
	b = bytes.TrimRight(b, octalPad)
	b = bytes.TrimLeft(b, " \t")
	if len(b) == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(string(b), 8, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// String decodes a NUL-terminated text field. The field is cut at the first
// NUL byte and invalid UTF-8 sequences are replaced with U+FFFD.
func String(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
