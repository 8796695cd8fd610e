// Package codepage converts between 8-bit codepage bytes, UTF-16LE code
// units, and UTF-8, per §4.3; it has no separate UTF-32 conversion. It
// wraps golang.org/x/text/encoding's
// charmap tables — the same dependency the teacher uses for its
// Windows-1252 key-name decoding — extended to the full codepage list this
// spec requires.
package codepage

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrConversion is returned under the Strict policy when a byte sequence
// cannot be converted without substitution.
var ErrConversion = errors.New("codepage: invalid byte sequence")

// ErrUnknown is returned when an identifier does not name a recognized
// codepage (§6).
var ErrUnknown = errors.New("codepage: unrecognized identifier")

// Codepage is a resolved, immutable 8-bit encoding.
type Codepage struct {
	name string
	cm   *charmap.Charmap // nil for plain ASCII
}

// Default is windows-1252, the default ascii-codepage selection (§3 File).
var Default = mustLookup("windows-1252")

var table = map[string]*charmap.Charmap{
	"windows-1250": charmap.Windows1250,
	"windows-1251": charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"windows-1253": charmap.Windows1253,
	"windows-1254": charmap.Windows1254,
	"windows-1255": charmap.Windows1255,
	"windows-1256": charmap.Windows1256,
	"windows-1257": charmap.Windows1257,
	"windows-1258": charmap.Windows1258,
	"koi8-r":       charmap.KOI8R,
	"koi8-u":       charmap.KOI8U,
}

// Lookup resolves one of the accepted case-insensitive codepage tokens
// (§6): windows-1250…windows-1258, koi8-r, koi8-u, ascii.
func Lookup(name string) (Codepage, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "ascii" {
		return Codepage{name: "ascii"}, nil
	}
	if cm, ok := table[key]; ok {
		return Codepage{name: key, cm: cm}, nil
	}
	return Codepage{}, fmt.Errorf("%w: %q", ErrUnknown, name)
}

func mustLookup(name string) Codepage {
	cp, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return cp
}

// Name returns the canonical lowercase identifier.
func (c Codepage) Name() string { return c.name }

// Decode converts codepage-encoded bytes to a UTF-8 string. Under the
// default substitute-and-continue policy, invalid bytes become
// utf8.RuneError; strict decides differently.
func (c Codepage) Decode(b []byte, strict bool) (string, error) {
	if c.cm == nil {
		// ASCII: values >= 0x80 have no defined mapping. Substitute or
		// fail per policy; valid ASCII passes through unchanged.
		if isASCII(b) {
			return string(b), nil
		}
		if strict {
			return "", fmt.Errorf("%w: non-ASCII byte in ascii codepage", ErrConversion)
		}
		out := make([]byte, 0, len(b))
		for _, bb := range b {
			if bb < 0x80 {
				out = append(out, bb)
			} else {
				out = append(out, []byte(string(utf8.RuneError))...)
			}
		}
		return string(out), nil
	}
	dec := c.cm.NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		if strict {
			return "", fmt.Errorf("%w: %v", ErrConversion, err)
		}
		// charmap decoders already substitute on unmappable bytes in
		// non-strict mode; this branch only triggers on hard transform
		// errors, which we degrade to best-effort rune-by-rune.
		return decodeLossy(c.cm, b), nil
	}
	return string(out), nil
}

func decodeLossy(cm *charmap.Charmap, b []byte) string {
	var sb strings.Builder
	for _, bb := range b {
		r := cm.DecodeByte(bb)
		if r == utf8.RuneError {
			sb.WriteRune(utf8.RuneError)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Encode converts a UTF-8 string back to codepage bytes (the inverse of
// Decode, used by the round-trip testable property in §8.3).
func (c Codepage) Encode(s string) ([]byte, error) {
	if c.cm == nil {
		if !isASCII([]byte(s)) {
			return nil, fmt.Errorf("%w: non-ASCII rune for ascii codepage", ErrConversion)
		}
		return []byte(s), nil
	}
	out, err := c.cm.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return out, nil
}

func isASCII(b []byte) bool {
	for _, bb := range b {
		if bb >= 0x80 {
			return false
		}
	}
	return true
}

// DecodeUTF16LE decodes a UTF-16LE byte sequence (even length required) to
// UTF-8, trimming one trailing NUL terminator if present.
func DecodeUTF16LE(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("%w: odd-length utf16le data", ErrConversion)
	}
	if len(b) >= 2 && b[len(b)-1] == 0 && b[len(b)-2] == 0 {
		b = b[:len(b)-2]
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(units)), nil
}

// EncodeUTF16LE is the inverse of DecodeUTF16LE, without adding a
// terminator (callers that need one append it themselves).
func EncodeUTF16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		out[2*i] = byte(u)
		out[2*i+1] = byte(u >> 8)
	}
	return out
}

// LooksLikeUTF16LE implements the heuristic from §4.9/§4.9 value facade:
// even byte count that decodes validly as UTF-16LE (no unpaired
// surrogates) is preferred over codepage interpretation.
func LooksLikeUTF16LE(b []byte) bool {
	if len(b)%2 != 0 || len(b) == 0 {
		return false
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u <= 0xDBFF: // high surrogate, needs a low pair
			if i+1 >= len(units) || units[i+1] < 0xDC00 || units[i+1] > 0xDFFF {
				return false
			}
			i++
		case u >= 0xDC00 && u <= 0xDFFF: // unpaired low surrogate
			return false
		}
	}
	return true
}

// SizeHint returns the exact number of UTF-8 bytes Decode would produce,
// enabling single-allocation decode by callers that pre-size a buffer.
func (c Codepage) SizeHint(b []byte) int {
	s, err := c.Decode(b, false)
	if err != nil {
		return len(b)
	}
	return len(s)
}
