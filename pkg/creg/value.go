package creg

import (
	"strings"

	"github.com/cregfs/creg/internal/buf"
	"github.com/cregfs/creg/internal/codepage"
	"github.com/cregfs/creg/internal/resolver"
)

// Value is the public facade over a resolved value record (§4.9).
type Value struct {
	rv *resolver.Value
	cp *codepage.Codepage
}

func wrapValue(rv *resolver.Value, cp *codepage.Codepage) *Value {
	if rv == nil {
		return nil
	}
	return &Value{rv: rv, cp: cp}
}

// Name returns the value's name.
func (v *Value) Name() string { return v.rv.Name() }

// Type returns the value's 32-bit type code.
func (v *Value) Type() RegType { return RegType(v.rv.Type()) }

// DataSize returns the length of the raw data in bytes.
func (v *Value) DataSize() int { return len(v.rv.Data()) }

// Data returns a defensive copy of the value's raw bytes.
func (v *Value) Data() []byte {
	return append([]byte(nil), v.rv.Data()...)
}

// DataAsInteger interprets the data as a 32-bit LE, 32-bit BE, or 64-bit
// LE integer, depending on Type. Valid only for DWORD_LE, DWORD_BE, and
// QWORD_LE (§4.9); any other type yields ErrUnsupportedValue.
func (v *Value) DataAsInteger() (int64, error) {
	data := v.rv.Data()
	switch v.Type() {
	case RegDwordLE:
		if len(data) < 4 {
			return 0, ErrUnsupportedValue
		}
		return int64(buf.U32LE(data)), nil
	case RegDwordBE:
		if len(data) < 4 {
			return 0, ErrUnsupportedValue
		}
		return int64(buf.U32BE(data)), nil
	case RegQwordLE:
		if len(data) < 8 {
			return 0, ErrUnsupportedValue
		}
		return int64(buf.U64LE(data)), nil
	default:
		return 0, ErrUnsupportedValue
	}
}

// decodeStringHeuristic prefers UTF-16LE when the data is an even number
// of bytes and decodes validly as such; otherwise it falls back to the
// active codepage (§4.9).
func decodeStringHeuristic(data []byte, cp *codepage.Codepage) (string, error) {
	if len(data)%2 == 0 && codepage.LooksLikeUTF16LE(data) {
		if s, err := codepage.DecodeUTF16LE(data); err == nil {
			return s, nil
		}
	}
	return cp.Decode(data, false)
}

// DataAsString decodes the data as text. Valid only for SZ, EXPAND_SZ,
// and LINK (§4.9); any other type yields ErrUnsupportedValue.
func (v *Value) DataAsString() (string, error) {
	switch v.Type() {
	case RegSZ, RegExpandSZ, RegLink:
	default:
		return "", ErrUnsupportedValue
	}
	s, err := decodeStringHeuristic(v.rv.Data(), v.cp)
	if err != nil {
		return "", &Error{Kind: ErrKindConversion, Msg: "value data conversion failed", Err: err}
	}
	return strings.TrimSuffix(s, "\x00"), nil
}

// DataAsStrings decodes MULTI_SZ data into its component strings,
// splitting on embedded NUL terminators. This supplements §4.9's table
// (which restricts DataAsString to types 1/2/6) with an accessor for the
// MULTI_SZ wire type.
func (v *Value) DataAsStrings() ([]string, error) {
	if v.Type() != RegMultiSZ {
		return nil, ErrUnsupportedValue
	}
	whole, err := decodeStringHeuristic(v.rv.Data(), v.cp)
	if err != nil {
		return nil, &Error{Kind: ErrKindConversion, Msg: "value data conversion failed", Err: err}
	}
	parts := strings.Split(whole, "\x00")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts, nil
}
