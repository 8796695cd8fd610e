package format

import (
	"bytes"
	"fmt"

	"github.com/cregfs/creg/internal/buf"
)

// Header is the decoded fixed-size record at offset 0 of a CREG file.
type Header struct {
	MajorVersion    uint16
	MinorVersion    uint16
	DeclaredSize    uint32
	RGDBCount       uint32
	FirstRGDBOffset uint32
	RootRGDBIndex   uint16
	RootKeyID       uint16

	// SizeMismatch is true when DeclaredSize differs from the adapter's
	// observed length; no tolerance is applied. Per spec §4.4 / §9 this is
	// corrupted-but-continue, never fatal; callers fold it into the
	// sticky corrupted flag.
	SizeMismatch bool

	// UnsupportedVersion is true when MajorVersion is not the one family
	// this decoder understands. Parsing proceeds with the corrupted flag
	// set (§4.4).
	UnsupportedVersion bool
}

// ParseHeader validates the CREG signature and decodes the header.
// observedLen is the adapter's actual byte length, used for the
// declared-vs-actual size cross-check; pass -1 to skip that check.
func ParseHeader(b []byte, observedLen int64) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("header: %w (have %d, need %d)", ErrTruncated, len(b), HeaderSize)
	}
	if !bytes.Equal(b[:HeaderSignatureSize], Signature) {
		return Header{}, fmt.Errorf("header: %w", ErrSignatureMismatch)
	}

	major := buf.U16LE(b[HeaderMajorOffset:])
	minor := buf.U16LE(b[HeaderMinorOffset:])
	declaredSize := buf.U32LE(b[HeaderFileSizeOffset:])
	rgdbCount := buf.U32LE(b[HeaderRGDBCountOffset:])
	firstRGDB := buf.U32LE(b[HeaderFirstRGDBOffset:])
	rootPacked := buf.U32LE(b[HeaderRootKeyOffset:])

	h := Header{
		MajorVersion:    major,
		MinorVersion:    minor,
		DeclaredSize:    declaredSize,
		RGDBCount:       rgdbCount,
		FirstRGDBOffset: firstRGDB,
		RootRGDBIndex:   uint16(rootPacked >> 16),
		RootKeyID:       uint16(rootPacked & 0xFFFF),
	}

	if major != HeaderSupportedMajorVersion {
		h.UnsupportedVersion = true
	}
	if observedLen >= 0 && int64(declaredSize) != observedLen {
		h.SizeMismatch = true
	}
	return h, nil
}
