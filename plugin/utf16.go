package plugin

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Host strings are NUL-terminated little-endian UTF-16.
var hostEncoding = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// EncodeHostString encodes s for a host buffer of size UTF-16 code units,
// including the terminator. A string that does not fit is cut short and
// ends in "...". A size below 4 yields nil.
func EncodeHostString(s string, size int) ([]byte, error) {
	if size < 4 {
		return nil, nil
	}
	enc, err := hostEncoding.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, err
	}
	if len(enc)/2 > size-1 {
		// cut on a rune boundary so no surrogate pair is split
		keep := size - 4
		src := []byte(s)
		n, units := 0, 0
		for n < len(src) {
			r, w := utf8.DecodeRune(src[n:])
			u := 1
			if r > 0xffff {
				u = 2
			}
			if units+u > keep {
				break
			}
			units += u
			n += w
		}
		enc, err = hostEncoding.NewEncoder().Bytes(append(src[:n:n], "..."...))
		if err != nil {
			return nil, err
		}
	}
	return append(enc, 0, 0), nil
}

// DecodeHostString decodes UTF-16 up to the first NUL code unit.
func DecodeHostString(b []byte) (string, error) {
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			b = b[:i]
			break
		}
	}
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	dec, err := hostEncoding.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(dec), nil
}
