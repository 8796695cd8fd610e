package buf

// FoldChecksum32 folds b as a sequence of little-endian 32-bit words with
// XOR, the page checksum algorithm used by RGDB pages (§4.2, §4.5). b's
// length need not be a multiple of 4; a trailing partial word is folded in
// zero-padded. Callers must zero the on-disk checksum field in their copy
// of the page before calling this, since the checksum slot is excluded
// from its own computation.
func FoldChecksum32(b []byte) uint32 {
	var sum uint32
	i := 0
	for ; i+4 <= len(b); i += 4 {
		sum ^= U32LE(b[i : i+4])
	}
	if i < len(b) {
		var tail [4]byte
		copy(tail[:], b[i:])
		sum ^= U32LE(tail[:])
	}
	return sum
}
