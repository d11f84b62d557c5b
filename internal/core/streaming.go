package core

// streaming.go provides the reader chain applied to delimited-text input
// before it reaches encoding/csv:
//
//   - bomSkipper drops a leading UTF-8 BOM (0xEF 0xBB 0xBF) written by Excel
//     and other Windows programs, so the first header is not polluted.
//   - utf8Sanitizer replaces invalid UTF-8 with U+FFFD without loading the
//     whole input, holding back a rune split across two reads.
//
// Use wrapTextInput to apply both in the correct order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// replacementChar is written in place of each invalid byte sequence.
var replacementChar = []byte(string(utf8.RuneError))

// sanitizerChunk is the read size of utf8Sanitizer.
const sanitizerChunk = 32 * 1024

// bomSkipper wraps a reader and discards a leading UTF-8 BOM.
type bomSkipper struct {
	br      *bufio.Reader
	checked bool
}

func newBOMSkipper(r io.Reader) *bomSkipper {
	return &bomSkipper{br: bufio.NewReader(r)}
}

func (b *bomSkipper) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		if head, err := b.br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			b.br.Discard(len(utf8BOM))
		}
	}
	return b.br.Read(p)
}

// utf8Sanitizer wraps a reader and emits only valid UTF-8.
type utf8Sanitizer struct {
	r       io.Reader
	buf     []byte
	pending []byte // incomplete rune carried to the next read
	out     []byte // sanitized bytes not yet returned
	err     error
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, buf: make([]byte, sanitizerChunk)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		n, err := s.r.Read(s.buf)
		data := append(s.pending, s.buf[:n]...)
		s.pending = nil
		if err == nil {
			cut := completePrefix(data)
			s.pending = append([]byte(nil), data[cut:]...)
			data = data[:cut]
		} else {
			s.err = err
		}
		if utf8.Valid(data) {
			s.out = data
		} else {
			s.out = bytes.ToValidUTF8(data, replacementChar)
		}
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// completePrefix returns the length of data without a trailing rune that
// has started but not finished.
func completePrefix(data []byte) int {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if !utf8.FullRune(data[i:]) {
				return i
			}
			break
		}
	}
	return len(data)
}

// wrapTextInput strips the BOM first, then sanitizes the remaining bytes.
func wrapTextInput(r io.Reader) io.Reader {
	return newUTF8Sanitizer(newBOMSkipper(r))
}
