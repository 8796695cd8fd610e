// Package format houses low-level decoders for the Windows 9x/Me CREG
// registry file format. Decoders here are pure functions over byte slices:
// no I/O, no allocation beyond the decoded structs, their errors and
// VerifyChecksum's scratch copy of the page, and no knowledge of the
// higher-level key/value tree. Package resolver stitches
// the RGKN index and RGDB name tables into that tree.
package format

var (
	// Signature is the four-byte magic at offset 0 of every CREG file.
	Signature = []byte{'C', 'R', 'E', 'G'}

	// RGKNSignature identifies the key-index region header.
	RGKNSignature = []byte{'R', 'G', 'K', 'N'}

	// RGDBSignature identifies a hive-bin (key-name table) page header.
	RGDBSignature = []byte{'R', 'G', 'D', 'B'}
)

// Sentinel is the reserved "no link" encoding for RGKN offset fields.
const Sentinel uint32 = 0xFFFFFFFF

// ============================================================================
// File header
// ============================================================================
// Offset  Size  Field
// 0x00    4     'C' 'R' 'E' 'G'
// 0x04    2     Major version
// 0x06    2     Minor version
// 0x08    4     Declared total file size
// 0x0C    4     RGDB page count
// 0x10    4     First RGDB page offset
// 0x14    4     Root key rgdb-index (high 16) / key-id (low 16), packed
//
//	as rgdb-index<<16 | key-id per §6.
const (
	HeaderSignatureOffset = 0x00
	HeaderSignatureSize   = 4
	HeaderMajorOffset     = 0x04
	HeaderMinorOffset     = 0x06
	HeaderFileSizeOffset  = 0x08
	HeaderRGDBCountOffset = 0x0C
	HeaderFirstRGDBOffset = 0x10
	HeaderRootKeyOffset   = 0x14

	// HeaderSize is the fixed header length declared by the only supported
	// format version family; unknown major versions still use this layout
	// but are flagged corrupted (§4.4).
	HeaderSize = 0x20

	// HeaderSupportedMajorVersion is the only version family this decoder
	// understands. Other values proceed with the corrupted flag set.
	HeaderSupportedMajorVersion = 1
)

// ============================================================================
// RGKN region
// ============================================================================
// Region header:
// 0x00  4  'R' 'G' 'K' 'N'
// 0x04  4  Region size (bytes, includes this header)
// 0x08  4  Root entry offset (relative to region start)
// 0x0C  4  Free-list head (offset, Sentinel if none)
// 0x10  4  Entry count
const (
	RGKNSignatureOffset = 0x00
	RGKNSignatureSize   = 4
	RGKNRegionSizeOffset = 0x04
	RGKNRootEntryOffset  = 0x08
	RGKNFreeListOffset   = 0x0C
	RGKNEntryCountOffset = 0x10

	RGKNHeaderSize = 0x14
)

// Key-index entry, fixed width (§6):
// 0x00  4  hash (untrusted, optimization hint only)
// 0x04  4  parent-link (byte offset into RGKN region)
// 0x08  4  first-subkey-link
// 0x0C  4  next-sibling-link
// 0x10  2  key-id
// 0x12  2  rgdb-index
const (
	EntryHashOffset       = 0x00
	EntryParentOffset     = 0x04
	EntryFirstChildOffset = 0x08
	EntryNextSiblingOffset = 0x0C
	EntryKeyIDOffset      = 0x10
	EntryRGDBIndexOffset  = 0x12

	// EntrySize is the fixed width of every RGKN key-index entry.
	EntrySize = 0x14
)

// ============================================================================
// RGDB page (hive bin)
// ============================================================================
// 0x00  4  'R' 'G' 'D' 'B'
// 0x04  4  Page size (bytes, multiple of PageUnit)
// 0x08  4  Flags
// 0x0C  2  Page index (must match positional order)
// 0x0E  2  reserved
// 0x10  4  Free-space offset (relative to page start)
// 0x14  4  Declared checksum (advisory, fold of page words with this
//
//	field zeroed)
const (
	RGDBPageSignatureOffset = 0x00
	RGDBPageSignatureSize   = 4
	RGDBPageSizeOffset      = 0x04
	RGDBFlagsOffset         = 0x08
	RGDBPageIndexOffset     = 0x0C
	RGDBFreeSpaceOffset     = 0x10
	RGDBChecksumOffset      = 0x14

	RGDBHeaderSize = 0x18

	// PageUnit is the format's page alignment unit; declared RGDB page
	// sizes must be a multiple of this (§3 RGDB page invariant).
	PageUnit = 0x1000
)

// ============================================================================
// Key-name record (inside an RGDB page)
// ============================================================================
// 0x00  4  record size (bytes, includes this header)
// 0x04  4  flags
// 0x08  2  key-id
// 0x0A  2  rgdb-index (must equal the enclosing page's index)
// 0x0C  2  number of values
// 0x0E  2  name length (bytes)
// 0x10  4  used size
// 0x14  n  name bytes (codepage), then inline value records
const (
	KeyRecordSizeOffset       = 0x00
	KeyRecordFlagsOffset      = 0x04
	KeyRecordKeyIDOffset      = 0x08
	KeyRecordRGDBIndexOffset  = 0x0A
	KeyRecordValueCountOffset = 0x0C
	KeyRecordNameLenOffset    = 0x0E
	KeyRecordUsedSizeOffset   = 0x10
	KeyRecordNameOffset       = 0x14

	KeyRecordHeaderSize = KeyRecordNameOffset
)

// ============================================================================
// Value record (inline within a key-name record)
// ============================================================================
// 0x00  4  record size (bytes, includes this header)
// 0x04  4  value type (32-bit, see Value type codes below)
// 0x08  2  name length
// 0x0A  4  data length
// 0x0E  n  name bytes (codepage)
// ...   m  data bytes (raw)
const (
	ValueRecordSizeOffset     = 0x00
	ValueRecordTypeOffset     = 0x04
	ValueRecordNameLenOffset  = 0x08
	ValueRecordDataLenOffset  = 0x0A
	ValueRecordNameOffset     = 0x0E

	ValueRecordHeaderSize = ValueRecordNameOffset
)

// ============================================================================
// Value type codes (§6), numbered identically to libcreg's data_type table.
// ============================================================================
const (
	RegNone                      uint32 = 0
	RegSZ                        uint32 = 1
	RegExpandSZ                  uint32 = 2
	RegBinary                    uint32 = 3
	RegDwordLE                   uint32 = 4
	RegDwordBE                   uint32 = 5
	RegLink                      uint32 = 6
	RegMultiSZ                   uint32 = 7
	RegResourceList              uint32 = 8
	RegFullResourceDescriptor    uint32 = 9
	RegResourceRequirementsList  uint32 = 10
	RegQwordLE                   uint32 = 11
)

// Sanity limits guard against hostile or badly corrupted files turning a
// single bad offset into an unbounded allocation.
const (
	MaxNameLen    = 1 << 16
	MaxValueCount = 1 << 16
	MaxDataLen    = 64 << 20
	MaxPageSize   = 64 << 20
)
