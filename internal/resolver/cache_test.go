package resolver

import (
	"encoding/binary"
	"testing"

	"github.com/cregfs/creg/internal/buf"
	"github.com/cregfs/creg/internal/codepage"
	"github.com/cregfs/creg/internal/format"
	"github.com/cregfs/creg/internal/ioadapter"
)

func u16(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }
func u32(v uint32) []byte { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, v); return b }

func buildValueRecord(name string, valType uint32, data []byte) []byte {
	header := format.ValueRecordHeaderSize
	recSize := header + len(name) + len(data)
	rec := make([]byte, 0, recSize)
	rec = append(rec, u32(uint32(recSize))...)
	rec = append(rec, u32(valType)...)
	rec = append(rec, u16(uint16(len(name)))...)
	rec = append(rec, u32(uint32(len(data)))...)
	rec = append(rec, []byte(name)...)
	rec = append(rec, data...)
	return rec
}

func buildKeyRecord(keyID, rgdbIndex uint16, name string, values [][]byte) []byte {
	body := make([]byte, 0)
	for _, v := range values {
		body = append(body, v...)
	}
	recSize := format.KeyRecordHeaderSize + len(name) + len(body)
	rec := make([]byte, 0, recSize)
	rec = append(rec, u32(uint32(recSize))...)
	rec = append(rec, u32(0)...) // flags
	rec = append(rec, u16(keyID)...)
	rec = append(rec, u16(rgdbIndex)...)
	rec = append(rec, u16(uint16(len(values)))...)
	rec = append(rec, u16(uint16(len(name)))...)
	rec = append(rec, u32(uint32(recSize))...) // used size
	rec = append(rec, []byte(name)...)
	rec = append(rec, body...)
	return rec
}

func buildRGDBPage(pageIndex uint16, size uint32, keyRecords [][]byte) []byte {
	page := make([]byte, size)
	copy(page[format.RGDBPageSignatureOffset:], format.RGDBSignature)
	binary.LittleEndian.PutUint32(page[format.RGDBPageSizeOffset:], size)
	binary.LittleEndian.PutUint16(page[format.RGDBPageIndexOffset:], pageIndex)
	cursor := format.RGDBHeaderSize
	for _, kr := range keyRecords {
		copy(page[cursor:], kr)
		cursor += len(kr)
	}
	binary.LittleEndian.PutUint32(page[format.RGDBFreeSpaceOffset:], uint32(cursor))
	// Zero checksum slot, fold, write back.
	for i := 0; i < 4; i++ {
		page[format.RGDBChecksumOffset+i] = 0
	}
	sum := buf.FoldChecksum32(page)
	binary.LittleEndian.PutUint32(page[format.RGDBChecksumOffset:], sum)
	return page
}

func buildEntry(hash, parent, firstChild, nextSibling uint32, keyID, rgdbIndex uint16) []byte {
	e := make([]byte, format.EntrySize)
	binary.LittleEndian.PutUint32(e[format.EntryHashOffset:], hash)
	binary.LittleEndian.PutUint32(e[format.EntryParentOffset:], parent)
	binary.LittleEndian.PutUint32(e[format.EntryFirstChildOffset:], firstChild)
	binary.LittleEndian.PutUint32(e[format.EntryNextSiblingOffset:], nextSibling)
	binary.LittleEndian.PutUint16(e[format.EntryKeyIDOffset:], keyID)
	binary.LittleEndian.PutUint16(e[format.EntryRGDBIndexOffset:], rgdbIndex)
	return e
}

// buildFile assembles a whole CREG image: header, RGKN region (header +
// entries), then RGDB pages back to back.
func buildFile(entries [][]byte, rootEntryOffset uint32, pages [][]byte, rootRGDBIndex, rootKeyID uint16) []byte {
	rgknBody := make([]byte, 0)
	for _, e := range entries {
		rgknBody = append(rgknBody, e...)
	}
	rgknRegionSize := format.RGKNHeaderSize + len(rgknBody)
	rgknHeader := make([]byte, format.RGKNHeaderSize)
	copy(rgknHeader[format.RGKNSignatureOffset:], format.RGKNSignature)
	binary.LittleEndian.PutUint32(rgknHeader[format.RGKNRegionSizeOffset:], uint32(rgknRegionSize))
	binary.LittleEndian.PutUint32(rgknHeader[format.RGKNRootEntryOffset:], rootEntryOffset)
	binary.LittleEndian.PutUint32(rgknHeader[format.RGKNFreeListOffset:], format.Sentinel)
	binary.LittleEndian.PutUint32(rgknHeader[format.RGKNEntryCountOffset:], uint32(len(entries)))

	rgdbBody := make([]byte, 0)
	for _, p := range pages {
		rgdbBody = append(rgdbBody, p...)
	}

	firstRGDBOffset := uint32(format.HeaderSize + rgknRegionSize)
	fileSize := firstRGDBOffset + uint32(len(rgdbBody))

	header := make([]byte, format.HeaderSize)
	copy(header[format.HeaderSignatureOffset:], format.Signature)
	binary.LittleEndian.PutUint16(header[format.HeaderMajorOffset:], 1)
	binary.LittleEndian.PutUint16(header[format.HeaderMinorOffset:], 0)
	binary.LittleEndian.PutUint32(header[format.HeaderFileSizeOffset:], fileSize)
	binary.LittleEndian.PutUint32(header[format.HeaderRGDBCountOffset:], uint32(len(pages)))
	binary.LittleEndian.PutUint32(header[format.HeaderFirstRGDBOffset:], firstRGDBOffset)
	binary.LittleEndian.PutUint32(header[format.HeaderRootKeyOffset:], uint32(rootRGDBIndex)<<16|uint32(rootKeyID))

	out := make([]byte, 0, fileSize)
	out = append(out, header...)
	out = append(out, rgknHeader...)
	out = append(out, rgknBody...)
	out = append(out, rgdbBody...)
	return out
}

func newTestCache(t *testing.T, data []byte) *Cache {
	t.Helper()
	hdr, err := format.ParseHeader(data[:format.HeaderSize], int64(len(data)))
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	cp, err := codepage.Lookup("windows-1252")
	if err != nil {
		t.Fatalf("codepage.Lookup: %v", err)
	}
	adapter := ioadapter.NewMemory(data)
	return NewCache(adapter, hdr, &cp, nil)
}

func TestCacheRootAndChildren(t *testing.T) {
	rootName := buildKeyRecord(0, 0, "Root", nil)
	childName := buildKeyRecord(1, 0, "Software", [][]byte{
		buildValueRecord("Version", format.RegSZ, []byte("V1.0\x00")),
	})
	page := buildRGDBPage(0, format.PageUnit, [][]byte{rootName, childName})

	rootOff := uint32(format.RGKNHeaderSize)
	childOff := rootOff + format.EntrySize
	rootEntry := buildEntry(0, format.Sentinel, childOff, format.Sentinel, 0, 0)
	childEntry := buildEntry(0, rootOff, format.Sentinel, format.Sentinel, 1, 0)

	data := buildFile([][]byte{rootEntry, childEntry}, rootOff, [][]byte{page}, 0, 0)
	c := newTestCache(t, data)

	root, err := c.Root()
	if err != nil || root == nil {
		t.Fatalf("Root: %v, %v", root, err)
	}
	if root.Name() != "Root" {
		t.Fatalf("root name = %q", root.Name())
	}
	if root.IsCorrupted() {
		t.Fatal("root should not be corrupted")
	}

	it := c.Children(root)
	child, err := it.Next()
	if err != nil || child == nil {
		t.Fatalf("Children.Next: %v, %v", child, err)
	}
	if child.Name() != "Software" {
		t.Fatalf("child name = %q", child.Name())
	}
	if len(child.Values()) != 1 || child.Values()[0].Name() != "Version" {
		t.Fatalf("child values = %+v", child.Values())
	}
	done, err := it.Next()
	if err != nil || done != nil {
		t.Fatalf("expected enumeration to end, got %v, %v", done, err)
	}

	// Restartable: a fresh Children call walks from the start again.
	it2 := c.Children(root)
	again, err := it2.Next()
	if err != nil || again == nil || again.Name() != "Software" {
		t.Fatalf("restarted enumeration: %v, %v", again, err)
	}

	parent, err := c.Parent(child)
	if err != nil || parent == nil || parent.Name() != "Root" {
		t.Fatalf("Parent: %v, %v", parent, err)
	}
	if rootParent, err := c.Parent(root); err != nil || rootParent != nil {
		t.Fatalf("root parent should be nil, got %v, %v", rootParent, err)
	}
}

func TestCachePathLookup(t *testing.T) {
	rootRec := buildKeyRecord(0, 0, "Root", nil)
	childRec := buildKeyRecord(1, 0, "Software", nil)
	grandRec := buildKeyRecord(2, 0, "Microsoft", nil)
	page := buildRGDBPage(0, format.PageUnit, [][]byte{rootRec, childRec, grandRec})

	rootOff := uint32(format.RGKNHeaderSize)
	childOff := rootOff + format.EntrySize
	grandOff := childOff + format.EntrySize
	rootEntry := buildEntry(0, format.Sentinel, childOff, format.Sentinel, 0, 0)
	childEntry := buildEntry(0, rootOff, grandOff, format.Sentinel, 1, 0)
	grandEntry := buildEntry(0, childOff, format.Sentinel, format.Sentinel, 2, 0)

	data := buildFile([][]byte{rootEntry, childEntry, grandEntry}, rootOff, [][]byte{page}, 0, 0)
	c := newTestCache(t, data)

	k, err := c.FindPath(nil, `\software/MICROSOFT`)
	if err != nil || k == nil {
		t.Fatalf("FindPath: %v, %v", k, err)
	}
	if k.Name() != "Microsoft" {
		t.Fatalf("resolved name = %q", k.Name())
	}

	miss, err := c.FindPath(nil, `\Software\Nope`)
	if err != nil || miss != nil {
		t.Fatalf("expected miss, got %v, %v", miss, err)
	}
}

func TestCacheCycleDetection(t *testing.T) {
	aRec := buildKeyRecord(0, 0, "A", nil)
	bRec := buildKeyRecord(1, 0, "B", nil)
	page := buildRGDBPage(0, format.PageUnit, [][]byte{aRec, bRec})

	aOff := uint32(format.RGKNHeaderSize)
	bOff := aOff + format.EntrySize
	// A's first child is B; B's next-sibling points back to itself,
	// forming a cycle that must not hang enumeration.
	aEntry := buildEntry(0, format.Sentinel, bOff, format.Sentinel, 0, 0)
	bEntry := buildEntry(0, aOff, format.Sentinel, bOff, 1, 0)

	data := buildFile([][]byte{aEntry, bEntry}, aOff, [][]byte{page}, 0, 0)
	c := newTestCache(t, data)

	root, err := c.Root()
	if err != nil || root == nil {
		t.Fatalf("Root: %v, %v", root, err)
	}
	it := c.Children(root)
	seen := 0
	for {
		k, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if k == nil {
			break
		}
		seen++
		if seen > len(data) {
			t.Fatal("enumeration did not terminate")
		}
	}
	if seen != 1 {
		t.Fatalf("expected exactly one child before cycle is cut, got %d", seen)
	}
	if !c.IsCorrupted() {
		t.Fatal("cycle should set the corrupted flag")
	}
}

func TestCacheAbort(t *testing.T) {
	rootRec := buildKeyRecord(0, 0, "Root", nil)
	page := buildRGDBPage(0, format.PageUnit, [][]byte{rootRec})
	rootOff := uint32(format.RGKNHeaderSize)
	rootEntry := buildEntry(0, format.Sentinel, format.Sentinel, format.Sentinel, 0, 0)
	data := buildFile([][]byte{rootEntry}, rootOff, [][]byte{page}, 0, 0)
	c := newTestCache(t, data)

	c.SignalAbort()
	if _, err := c.Root(); err != ErrAbort {
		t.Fatalf("expected ErrAbort, got %v", err)
	}
}

func TestCacheEmptyFile(t *testing.T) {
	data := buildFile(nil, format.Sentinel, nil, 0, 0)
	c := newTestCache(t, data)
	root, err := c.Root()
	if err != nil || root != nil {
		t.Fatalf("expected nil root for empty file, got %v, %v", root, err)
	}
}

func TestCacheRGDBIndexExceedsCount(t *testing.T) {
	rootOff := uint32(format.RGKNHeaderSize)
	// rgdb-index 5 but header declares 0 pages: key exists, no name.
	rootEntry := buildEntry(0, format.Sentinel, format.Sentinel, format.Sentinel, 0, 5)
	data := buildFile([][]byte{rootEntry}, rootOff, nil, 0, 0)
	c := newTestCache(t, data)

	root, err := c.Root()
	if err != nil || root == nil {
		t.Fatalf("Root: %v, %v", root, err)
	}
	if root.Name() != "" || !root.IsCorrupted() {
		t.Fatalf("expected empty-name corrupted key, got name=%q corrupted=%v", root.Name(), root.IsCorrupted())
	}
	if !c.IsCorrupted() {
		t.Fatal("file should be marked corrupted")
	}
}
