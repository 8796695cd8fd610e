package format

import "errors"

var (
	// ErrSignatureMismatch indicates a structure had an unexpected magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrSanityLimit indicates a parsed length/count exceeded a sanity bound.
	ErrSanityLimit = errors.New("format: value exceeds sanity limit")
	// ErrRecordSize indicates a record's declared size disagrees with the
	// size of its own fields and value records (§3 Key-name record invariant).
	ErrRecordSize = errors.New("format: record size inconsistent")
)
