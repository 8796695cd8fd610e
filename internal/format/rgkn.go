package format

import (
	"bytes"
	"fmt"

	"github.com/cregfs/creg/internal/buf"
)

// RGKNHeader is the decoded header of the RGKN key-index region.
type RGKNHeader struct {
	RegionSize     uint32
	RootEntryOffset uint32
	FreeListHead   uint32
	EntryCount     uint32
}

// ParseRGKNHeader decodes the region header from the start of the RGKN
// region (b[0] is the 'R' of "RGKN").
func ParseRGKNHeader(b []byte) (RGKNHeader, error) {
	if len(b) < RGKNHeaderSize {
		return RGKNHeader{}, fmt.Errorf("rgkn header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:RGKNSignatureSize], RGKNSignature) {
		return RGKNHeader{}, fmt.Errorf("rgkn header: %w", ErrSignatureMismatch)
	}
	return RGKNHeader{
		RegionSize:      buf.U32LE(b[RGKNRegionSizeOffset:]),
		RootEntryOffset: buf.U32LE(b[RGKNRootEntryOffset:]),
		FreeListHead:    buf.U32LE(b[RGKNFreeListOffset:]),
		EntryCount:      buf.U32LE(b[RGKNEntryCountOffset:]),
	}, nil
}

// IndexEntry is a single fixed-width RGKN key-index entry (§3, §6). Links
// are byte offsets into the RGKN region, not array indices.
type IndexEntry struct {
	Hash            uint32 // untrusted optimization hint, never compared
	ParentLink      uint32
	FirstChildLink  uint32
	NextSiblingLink uint32
	KeyID           uint16
	RGDBIndex       uint16
}

// DecodeIndexEntry decodes one fixed-width entry from b (exactly EntrySize
// bytes or more; trailing bytes are ignored).
func DecodeIndexEntry(b []byte) (IndexEntry, error) {
	if len(b) < EntrySize {
		return IndexEntry{}, fmt.Errorf("rgkn entry: %w", ErrTruncated)
	}
	return IndexEntry{
		Hash:            buf.U32LE(b[EntryHashOffset:]),
		ParentLink:      buf.U32LE(b[EntryParentOffset:]),
		FirstChildLink:  buf.U32LE(b[EntryFirstChildOffset:]),
		NextSiblingLink: buf.U32LE(b[EntryNextSiblingOffset:]),
		KeyID:           buf.U16LE(b[EntryKeyIDOffset:]),
		RGDBIndex:       buf.U16LE(b[EntryRGDBIndexOffset:]),
	}, nil
}

// IsSentinel reports whether a link value means "no link".
func IsSentinel(link uint32) bool { return link == Sentinel }
