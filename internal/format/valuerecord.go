package format

import (
	"fmt"

	"github.com/cregfs/creg/internal/buf"
)

// ValueRecord is one decoded value record, inline within a key-name
// record's tail (§3 Value record).
type ValueRecord struct {
	RecordSize uint32
	Type       uint32
	NameRaw    []byte
	Data       []byte
}

// DecodeValueRecord decodes one value record starting at b[0]. It returns
// the record along with the number of bytes consumed (RecordSize), so the
// caller can advance to the next record. b may contain trailing bytes
// belonging to later records.
func DecodeValueRecord(b []byte) (ValueRecord, int, error) {
	if len(b) < ValueRecordHeaderSize {
		return ValueRecord{}, 0, fmt.Errorf("value record: %w", ErrTruncated)
	}
	recSize := buf.U32LE(b[ValueRecordSizeOffset:])
	valType := buf.U32LE(b[ValueRecordTypeOffset:])
	nameLen := buf.U16LE(b[ValueRecordNameLenOffset:])
	dataLen := buf.U32LE(b[ValueRecordDataLenOffset:])

	if int(nameLen) > MaxNameLen || dataLen > MaxDataLen {
		return ValueRecord{}, 0, fmt.Errorf("value record lengths: %w", ErrSanityLimit)
	}
	if int64(recSize) > int64(len(b)) {
		return ValueRecord{}, 0, fmt.Errorf("value record: %w", ErrTruncated)
	}

	nameEnd, ok := buf.AddOverflowSafe(ValueRecordNameOffset, int(nameLen))
	if !ok || nameEnd > len(b) {
		return ValueRecord{}, 0, fmt.Errorf("value record name: %w", ErrTruncated)
	}
	dataEnd, ok := buf.AddOverflowSafe(nameEnd, int(dataLen))
	if !ok || dataEnd > len(b) {
		return ValueRecord{}, 0, fmt.Errorf("value record data: %w", ErrTruncated)
	}

	// §3 invariant: header + name + data must equal the declared record
	// size. Violations are local to this record; the caller marks the
	// enclosing page corrupted and skips it rather than failing outright.
	if uint32(dataEnd) != recSize {
		return ValueRecord{}, 0, fmt.Errorf("value record: declared size %d, computed %d: %w",
			recSize, dataEnd, ErrRecordSize)
	}

	return ValueRecord{
		RecordSize: recSize,
		Type:       valType,
		NameRaw:    b[ValueRecordNameOffset:nameEnd],
		Data:       b[nameEnd:dataEnd],
	}, int(recSize), nil
}
