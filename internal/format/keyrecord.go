package format

import (
	"fmt"

	"github.com/cregfs/creg/internal/buf"
)

// KeyRecord is one decoded key-name record from an RGDB page: the key's
// textual name plus its inline ordered sequence of value records (§3).
type KeyRecord struct {
	RecordSize uint32
	KeyID      uint16
	RGDBIndex  uint16
	NameRaw    []byte
	Values     []ValueRecord
}

// DecodeKeyRecord decodes one key-name record starting at b[0], including
// its trailing value records. It returns the record and the number of
// bytes consumed. A malformed value record truncates the Values slice and
// returns that value record's decode error; running out of body bytes
// before valueCount records, or leaving body bytes over after them,
// returns ErrRecordSize. The caller (RGDB page walker) treats any of these
// as page-local corruption, not a fatal error (§4.5).
func DecodeKeyRecord(b []byte) (KeyRecord, int, error) {
	if len(b) < KeyRecordHeaderSize {
		return KeyRecord{}, 0, fmt.Errorf("key record: %w", ErrTruncated)
	}
	recSize := buf.U32LE(b[KeyRecordSizeOffset:])
	keyID := buf.U16LE(b[KeyRecordKeyIDOffset:])
	rgdbIndex := buf.U16LE(b[KeyRecordRGDBIndexOffset:])
	valueCount := buf.U16LE(b[KeyRecordValueCountOffset:])
	nameLen := buf.U16LE(b[KeyRecordNameLenOffset:])

	if int(valueCount) > MaxValueCount || int(nameLen) > MaxNameLen {
		return KeyRecord{}, 0, fmt.Errorf("key record lengths: %w", ErrSanityLimit)
	}
	if int64(recSize) > int64(len(b)) || recSize < KeyRecordHeaderSize {
		return KeyRecord{}, 0, fmt.Errorf("key record: %w", ErrTruncated)
	}

	nameEnd, ok := buf.AddOverflowSafe(KeyRecordNameOffset, int(nameLen))
	if !ok || nameEnd > int(recSize) || nameEnd > len(b) {
		return KeyRecord{}, 0, fmt.Errorf("key record name: %w", ErrTruncated)
	}

	rec := KeyRecord{
		RecordSize: recSize,
		KeyID:      keyID,
		RGDBIndex:  rgdbIndex,
		NameRaw:    b[KeyRecordNameOffset:nameEnd],
	}

	body := b[nameEnd:recSize]
	cursor := 0
	var err error
	for i := 0; i < int(valueCount); i++ {
		if cursor >= len(body) {
			err = fmt.Errorf("key record: %w (expected %d values, ran out at %d)",
				ErrRecordSize, valueCount, i)
			break
		}
		vr, n, decodeErr := DecodeValueRecord(body[cursor:])
		if decodeErr != nil {
			err = decodeErr
			break
		}
		rec.Values = append(rec.Values, vr)
		cursor += n
	}

	// §3 invariant: sum of value record sizes + fixed header + name length
	// must equal the declared record size. Any body bytes left after the
	// last value record are reported as ErrRecordSize for this record; the
	// record and its consumed size are still returned.
	if err == nil && cursor != len(body) {
		err = fmt.Errorf("key record: %w (%d body bytes left after %d values)",
			ErrRecordSize, len(body)-cursor, valueCount)
	}
	if err != nil {
		return rec, int(recSize), err
	}
	return rec, int(recSize), nil
}
