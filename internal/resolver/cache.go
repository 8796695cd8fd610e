package resolver

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cregfs/creg/internal/codepage"
	"github.com/cregfs/creg/internal/format"
	"github.com/cregfs/creg/internal/ioadapter"
)

// sanityMaxRegionSize bounds how much of the RGKN region a single Cache
// will read into memory, protecting against a hostile DeclaredSize/
// RegionSize field turning one open() into an unbounded allocation.
const sanityMaxRegionSize = 256 << 20

// pageData is the decoded form of one loaded RGDB page: a by-key-id map
// over its key-name records (§4.5). The first record with a given key-id
// wins; later duplicates are dropped and flag the file corrupted.
type pageData struct {
	records map[uint16]format.KeyRecord
}

// Cache maps Identity to a materialized Key, guaranteeing at most one live
// Key object per identity (§4.7), and owns lazy RGKN/RGDB loading. It
// corresponds to the teacher's hive/namecache.lruCache in shape, but is
// unbounded (§5 "the key cache is unbounded") and keyed by identity rather
// than by raw name bytes.
type Cache struct {
	mu sync.Mutex

	adapter ioadapter.Adapter
	header  format.Header
	cp      *codepage.Codepage
	sink    Notifier

	abort     uint32 // atomic bool, set by SignalAbort
	corrupted uint32 // atomic bool, sticky
	notified  map[string]bool

	rgknBase        int64
	rgknLoaded      bool
	entryCount      uint32
	rootEntryOffset uint32
	rootValid       bool
	entries         map[uint32]format.IndexEntry
	identityToEntry map[Identity]uint32

	pages              map[uint16]*pageData
	nextPageFileOffset int64
	nextPageIndex      uint16
	pagesExhausted     bool

	keys map[Identity]*Key
}

// NewCache constructs a resolver over an already-open adapter and decoded
// file header. sink may be nil, in which case notifications are dropped.
func NewCache(adapter ioadapter.Adapter, header format.Header, cp *codepage.Codepage, sink Notifier) *Cache {
	if sink == nil {
		sink = noopNotifier{}
	}
	return &Cache{
		adapter:            adapter,
		header:             header,
		cp:                 cp,
		sink:               sink,
		notified:           make(map[string]bool),
		entries:            make(map[uint32]format.IndexEntry),
		identityToEntry:    make(map[Identity]uint32),
		pages:              make(map[uint16]*pageData),
		keys:               make(map[Identity]*Key),
		rgknBase:           int64(format.HeaderSize),
		nextPageFileOffset: int64(header.FirstRGDBOffset),
	}
}

// SignalAbort sets the abort flag (§4.8, §5). Safe from any goroutine.
func (c *Cache) SignalAbort() { atomic.StoreUint32(&c.abort, 1) }

// checkAbort reports whether the abort flag is set and clears it, so only
// the operation that observes it fails and the handle stays usable.
func (c *Cache) checkAbort() bool { return atomic.CompareAndSwapUint32(&c.abort, 1, 0) }

// IsCorrupted reports whether any local corruption has been observed.
func (c *Cache) IsCorrupted() bool { return atomic.LoadUint32(&c.corrupted) != 0 }

func (c *Cache) markCorrupted(kind, msg string) {
	atomic.StoreUint32(&c.corrupted, 1)
	c.notifyOnce(kind, msg)
}

// MarkCorrupted sets the sticky corrupted flag and forwards a one-time
// notice to the sink, for corruption observed by a caller outside the
// cache itself: pkg/creg.File.Open folds the header's declared-size and
// version checks into the file-wide flag this way (§4.4). Safe to call
// without already holding any lock.
func (c *Cache) MarkCorrupted(kind, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markCorrupted(kind, msg)
}

// notifyOnce forwards a notice to the sink the first time this kind is
// seen (§4.5 "log once"). Caller must hold c.mu.
func (c *Cache) notifyOnce(kind, msg string) {
	if c.notified[kind] {
		return
	}
	c.notified[kind] = true
	c.sink.Notify(kind, msg)
}

// EnsureRGKNLoaded reads the RGKN region exactly once (§4.6 "loads the
// RGKN region once"). Safe to call repeatedly; subsequent calls are no-ops.
func (c *Cache) EnsureRGKNLoaded() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureRGKNLoadedLocked()
}

func (c *Cache) ensureRGKNLoadedLocked() error {
	if c.rgknLoaded {
		return nil
	}
	if c.checkAbort() {
		return ErrAbort
	}

	hdrBuf := make([]byte, format.RGKNHeaderSize)
	if _, err := c.adapter.ReadAt(c.rgknBase, hdrBuf); err != nil {
		return fmt.Errorf("resolver: reading rgkn header: %w", err)
	}
	rgknHdr, err := format.ParseRGKNHeader(hdrBuf)
	if err != nil {
		return fmt.Errorf("resolver: %w", err)
	}

	regionSize := int64(rgknHdr.RegionSize)
	maxAvailable := c.adapter.Len() - c.rgknBase
	if regionSize < int64(format.RGKNHeaderSize) || regionSize > maxAvailable {
		c.markCorrupted("rgkn", "region size disagrees with declared bounds")
		if maxAvailable < int64(format.RGKNHeaderSize) {
			regionSize = int64(format.RGKNHeaderSize)
		} else {
			regionSize = maxAvailable
		}
	}
	if regionSize > sanityMaxRegionSize {
		c.markCorrupted("rgkn", "region size exceeds sanity limit")
		regionSize = sanityMaxRegionSize
	}

	region := make([]byte, regionSize)
	n, err := c.adapter.ReadAt(c.rgknBase, region)
	if err != nil {
		return fmt.Errorf("resolver: reading rgkn region: %w", err)
	}
	region = region[:n]

	maxEntries := uint32(0)
	if n > format.RGKNHeaderSize {
		maxEntries = uint32((n - format.RGKNHeaderSize) / format.EntrySize)
	}
	entryCount := rgknHdr.EntryCount
	if entryCount > maxEntries {
		c.markCorrupted("rgkn", "declared entry count exceeds available region bytes")
		entryCount = maxEntries
	}

	offset := uint32(format.RGKNHeaderSize)
	for i := uint32(0); i < entryCount; i++ {
		if c.checkAbort() {
			return ErrAbort
		}
		entry, decErr := format.DecodeIndexEntry(region[offset:])
		if decErr != nil {
			c.markCorrupted("rgkn", "truncated key-index entry")
			break
		}
		c.entries[offset] = entry
		id := Identity{RGDBIndex: entry.RGDBIndex, KeyID: entry.KeyID}
		if _, dup := c.identityToEntry[id]; !dup {
			c.identityToEntry[id] = offset
		}
		offset += format.EntrySize
	}

	c.entryCount = entryCount
	c.rootEntryOffset = rgknHdr.RootEntryOffset
	c.rootValid = c.isValidEntryOffset(rgknHdr.RootEntryOffset)
	if !c.rootValid {
		c.markCorrupted("rgkn", "root entry offset out of bounds")
	}
	c.rgknLoaded = true
	return nil
}

func (c *Cache) isValidEntryOffset(offset uint32) bool {
	if offset < uint32(format.RGKNHeaderSize) {
		return false
	}
	if (offset-uint32(format.RGKNHeaderSize))%format.EntrySize != 0 {
		return false
	}
	_, ok := c.entries[offset]
	return ok
}

func (c *Cache) entryAt(offset uint32) (format.IndexEntry, bool) {
	e, ok := c.entries[offset]
	return e, ok
}

// Root returns the root key, or nil if the file declares no RGKN entries
// at all (§4.8 get_root_key "or None if file empty") or its root entry
// offset does not name a loaded entry.
func (c *Cache) Root() (*Key, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureRGKNLoadedLocked(); err != nil {
		return nil, err
	}
	if c.entryCount == 0 || !c.rootValid {
		return nil, nil
	}
	entry, ok := c.entries[c.rootEntryOffset]
	if !ok {
		return nil, nil
	}
	// Cross-check against the header's root (rgdb-index, key-id)
	// descriptor (§3 Header). A mismatch is advisory, not fatal: the
	// RGKN root-entry offset is what's actually navigable.
	if entry.RGDBIndex != c.header.RootRGDBIndex || entry.KeyID != c.header.RootKeyID {
		c.markCorrupted("header", "header root descriptor disagrees with rgkn root entry")
	}
	return c.materializeLocked(c.rootEntryOffset, entry)
}

// Parent returns k's parent, or nil if k is the root (sentinel parent
// link) or its parent link is unresolvable (§4.6 edge-case policy).
func (c *Cache) Parent(k *Key) (*Key, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if format.IsSentinel(k.parentLink) {
		return nil, nil
	}
	if c.checkAbort() {
		return nil, ErrAbort
	}
	entry, ok := c.entryAt(k.parentLink)
	if !ok {
		c.markCorrupted("rgkn", "parent link outside region")
		return nil, nil
	}
	return c.materializeLocked(k.parentLink, entry)
}

// ByIdentity returns the cached key for id if one was already
// materialized via traversal, without performing a fresh RGKN lookup
// (identity alone does not carry a navigable offset).
func (c *Cache) ByIdentity(id Identity) (*Key, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.keys[id]
	return k, ok
}

func (c *Cache) materializeLocked(entryOffset uint32, entry format.IndexEntry) (*Key, error) {
	id := Identity{RGDBIndex: entry.RGDBIndex, KeyID: entry.KeyID}
	if k, ok := c.keys[id]; ok {
		return k, nil
	}

	key := &Key{
		id:              id,
		entryOffset:     entryOffset,
		parentLink:      entry.ParentLink,
		firstChildLink:  entry.FirstChildLink,
		nextSiblingLink: entry.NextSiblingLink,
	}

	if int(entry.RGDBIndex) >= int(c.header.RGDBCount) {
		// §4.6 edge case: rgdb-index exceeds declared count. The key
		// entry exists but has no name.
		key.corrupted = true
		c.markCorrupted("key", "rgdb-index exceeds declared rgdb count")
		c.keys[id] = key
		return key, nil
	}

	pd, err := c.ensurePageLoadedLocked(entry.RGDBIndex)
	if err != nil {
		return nil, err
	}
	var rec format.KeyRecord
	found := false
	if pd != nil {
		rec, found = pd.records[entry.KeyID]
	}
	if !found {
		key.corrupted = true
		c.markCorrupted("key", "key-id not present in its rgdb page")
		c.keys[id] = key
		return key, nil
	}

	name, decErr := c.cp.Decode(rec.NameRaw, false)
	if decErr != nil {
		key.corrupted = true
		c.markCorrupted("codepage", "key name failed to decode")
	} else {
		key.name = name
	}
	key.values = make([]*Value, 0, len(rec.Values))
	for _, vr := range rec.Values {
		vname, _ := c.cp.Decode(vr.NameRaw, false)
		data := append([]byte(nil), vr.Data...)
		key.values = append(key.values, &Value{name: vname, typ: vr.Type, data: data})
	}

	c.keys[id] = key
	return key, nil
}

// ensurePageLoadedLocked scans RGDB pages sequentially from the last
// scan position until index is found or the adapter is exhausted,
// caching every page it passes along the way (§4.5).
func (c *Cache) ensurePageLoadedLocked(index uint16) (*pageData, error) {
	if p, ok := c.pages[index]; ok {
		return p, nil
	}
	for !c.pagesExhausted {
		if c.checkAbort() {
			return nil, ErrAbort
		}
		offset := c.nextPageFileOffset
		if offset < 0 || offset >= c.adapter.Len() {
			c.pagesExhausted = true
			break
		}

		hdrBuf := make([]byte, format.RGDBHeaderSize)
		n, err := c.adapter.ReadAt(offset, hdrBuf)
		if err != nil {
			return nil, fmt.Errorf("resolver: reading rgdb page header: %w", err)
		}
		if n < format.RGDBHeaderSize {
			c.markCorrupted("rgdb", "truncated page header")
			c.pagesExhausted = true
			break
		}
		hdr, parseErr := format.ParseRGDBPageHeader(hdrBuf)
		if parseErr != nil {
			c.markCorrupted("rgdb", parseErr.Error())
			c.pagesExhausted = true
			break
		}
		if !format.PageSizeValid(hdr.PageSize) {
			c.markCorrupted("rgdb", "invalid page size")
			c.pagesExhausted = true
			break
		}

		pageBuf := make([]byte, hdr.PageSize)
		n, err = c.adapter.ReadAt(offset, pageBuf)
		if err != nil {
			return nil, fmt.Errorf("resolver: reading rgdb page: %w", err)
		}
		pageBuf = pageBuf[:n]

		if !format.VerifyChecksum(pageBuf, hdr) {
			c.markCorrupted("checksum", "rgdb page checksum mismatch")
		}
		if hdr.PageIndex != c.nextPageIndex {
			c.markCorrupted("rgdb", "page index out of positional order")
		}

		// Key-name records end at the page's free-space offset; the bytes
		// after it are unused. An out-of-range offset falls back to the
		// whole page.
		recordsEnd := len(pageBuf)
		if fs := int64(hdr.FreeSpace); fs >= format.RGDBHeaderSize && fs < int64(recordsEnd) {
			recordsEnd = int(fs)
		}
		pd := &pageData{records: make(map[uint16]format.KeyRecord)}
		if recordsEnd > format.RGDBHeaderSize {
			body := pageBuf[format.RGDBHeaderSize:recordsEnd]
			cursor := 0
			for cursor < len(body) {
				if c.checkAbort() {
					return nil, ErrAbort
				}
				rec, consumed, decErr := format.DecodeKeyRecord(body[cursor:])
				if decErr != nil {
					c.markCorrupted("rgdb", "key record decode failed")
					break
				}
				if consumed <= 0 {
					break
				}
				if _, dup := pd.records[rec.KeyID]; dup {
					c.markCorrupted("rgdb", "duplicate key-id within page")
				} else {
					pd.records[rec.KeyID] = rec
				}
				cursor += consumed
			}
		}

		c.pages[hdr.PageIndex] = pd
		c.nextPageFileOffset = offset + int64(hdr.PageSize)
		c.nextPageIndex = hdr.PageIndex + 1
		if hdr.PageIndex == index {
			return pd, nil
		}
	}
	return c.pages[index], nil
}
