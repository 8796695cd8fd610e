package format

import (
	"bytes"
	"fmt"

	"github.com/cregfs/creg/internal/buf"
)

// RGDBPageHeader is the decoded header of one RGDB hive-bin page.
type RGDBPageHeader struct {
	PageSize   uint32
	Flags      uint32
	PageIndex  uint16
	FreeSpace  uint32
	Checksum   uint32
}

// ParseRGDBPageHeader decodes the header at the start of a page (b[0] is
// the 'R' of "RGDB"). It does not validate the checksum; use
// VerifyChecksum for that, separately, since checksum failure is
// advisory (§4.5) rather than fatal.
func ParseRGDBPageHeader(b []byte) (RGDBPageHeader, error) {
	if len(b) < RGDBHeaderSize {
		return RGDBPageHeader{}, fmt.Errorf("rgdb header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:RGDBPageSignatureSize], RGDBSignature) {
		return RGDBPageHeader{}, fmt.Errorf("rgdb header: %w", ErrSignatureMismatch)
	}
	pageSize := buf.U32LE(b[RGDBPageSizeOffset:])
	if pageSize > MaxPageSize {
		return RGDBPageHeader{}, fmt.Errorf("rgdb page size %d: %w", pageSize, ErrSanityLimit)
	}
	return RGDBPageHeader{
		PageSize:  pageSize,
		Flags:     buf.U32LE(b[RGDBFlagsOffset:]),
		PageIndex: buf.U16LE(b[RGDBPageIndexOffset:]),
		FreeSpace: buf.U32LE(b[RGDBFreeSpaceOffset:]),
		Checksum:  buf.U32LE(b[RGDBChecksumOffset:]),
	}, nil
}

// VerifyChecksum folds page (truncated/extended to declared PageSize, with
// the on-disk checksum slot zeroed) and compares against the declared
// value. A false result means the page should be flagged corrupted but
// still parsed (§4.5 checksum policy) — callers must not treat this as
// fatal.
func VerifyChecksum(page []byte, hdr RGDBPageHeader) bool {
	n := int(hdr.PageSize)
	if n > len(page) {
		n = len(page)
	}
	scratch := make([]byte, n)
	copy(scratch, page[:n])
	if RGDBChecksumOffset+4 <= len(scratch) {
		for i := 0; i < 4; i++ {
			scratch[RGDBChecksumOffset+i] = 0
		}
	}
	return buf.FoldChecksum32(scratch) == hdr.Checksum
}

// PageSizeValid reports whether a declared page size is a multiple of the
// format's page unit (§3 RGDB page invariant).
func PageSizeValid(size uint32) bool {
	return size > 0 && size%PageUnit == 0
}
