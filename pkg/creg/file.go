// Package creg is a read-only decoder and navigator for the Windows
// 9x/Me CREG registry file format (USER.DAT / SYSTEM.DAT). It exposes a
// hierarchical key/value tree over a file path or an in-memory byte
// range; there is no write path.
package creg

import (
	"errors"
	"sync"

	"github.com/cregfs/creg/internal/codepage"
	"github.com/cregfs/creg/internal/format"
	"github.com/cregfs/creg/internal/ioadapter"
	"github.com/cregfs/creg/internal/resolver"
)

// OpenOptions configures Open/OpenBytes (§4.8).
type OpenOptions struct {
	// Codepage names the narrow-byte codepage for key/value names and
	// string data. Empty defaults to "windows-1252".
	Codepage string
	// Sink receives one-line notices the first time a given corruption
	// condition is observed. Nil discards notifications.
	Sink Sink
}

// File is an open CREG file handle (§3 File). Zero value is not usable;
// construct with Open or OpenBytes.
type File struct {
	mu      sync.RWMutex
	adapter ioadapter.Adapter
	header  format.Header
	cache   *resolver.Cache
	cp      *codepage.Codepage
	closed  bool
}

// Open maps the file at path and decodes its header (§4.8 "open").
func Open(path string, opts OpenOptions) (*File, error) {
	adapter, err := ioadapter.OpenFile(path)
	if err != nil {
		return nil, wrapIO(err)
	}
	f, err := newFile(adapter, opts)
	if err != nil {
		adapter.Close()
		return nil, err
	}
	return f, nil
}

// OpenBytes decodes an in-memory byte range as a CREG file (§4.8 "open",
// memory range variant; §4.1 IO adapter).
func OpenBytes(data []byte, opts OpenOptions) (*File, error) {
	return newFile(ioadapter.NewMemory(data), opts)
}

func newFile(adapter ioadapter.Adapter, opts OpenOptions) (*File, error) {
	headerBuf := make([]byte, format.HeaderSize)
	n, err := adapter.ReadAt(0, headerBuf)
	if err != nil {
		return nil, wrapIO(err)
	}

	hdr, err := format.ParseHeader(headerBuf[:n], adapter.Len())
	if err != nil {
		if errors.Is(err, format.ErrSignatureMismatch) {
			return nil, ErrSignatureMismatch
		}
		return nil, &Error{Kind: ErrKindInvalidData, Msg: "header decode failed", Err: err}
	}

	var cp codepage.Codepage
	if opts.Codepage == "" {
		cp = codepage.Default
	} else {
		cp, err = codepage.Lookup(opts.Codepage)
		if err != nil {
			return nil, &Error{Kind: ErrKindInvalidArgument, Msg: "unknown codepage", Err: err}
		}
	}
	sink := opts.Sink
	if sink == nil {
		sink = DiscardSink{}
	}

	cpPtr := &cp
	cache := resolver.NewCache(adapter, hdr, cpPtr, sink)

	// §3 Header invariant / §4.4: declared-size and version mismatches are
	// corrupted-but-continue, never fatal. Fold them into the file-wide
	// sticky corrupted flag rather than just leaving them as struct fields
	// nobody reads.
	if hdr.SizeMismatch {
		cache.MarkCorrupted("header", "declared file size disagrees with observed adapter length")
	}
	if hdr.UnsupportedVersion {
		cache.MarkCorrupted("header", "unsupported header version")
	}

	if err := cache.EnsureRGKNLoaded(); err != nil {
		return nil, translateResolverErr(err)
	}

	return &File{adapter: adapter, header: hdr, cache: cache, cp: cpPtr}, nil
}

// Close releases the underlying adapter (§4.8 "close"). Safe to call
// more than once.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if err := f.adapter.Close(); err != nil {
		return wrapIO(err)
	}
	return nil
}

// SetCodepage updates the codepage used to decode names and string data
// not yet materialized (§4.8 "set_codepage"). Already-materialized key
// names are immutable for the file's lifetime (§3 Key) and are not
// retroactively re-decoded. Value names are decoded together with their
// key and likewise keep the old codepage; value string data is decoded
// lazily on each DataAsString/DataAsStrings call and does observe the
// change.
func (f *File) SetCodepage(name string) error {
	cp, err := codepage.Lookup(name)
	if err != nil {
		return &Error{Kind: ErrKindUnsupportedValue, Msg: "unknown codepage", Err: err}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	*f.cp = cp
	return nil
}

// GetRootKey returns the root key, or (nil, nil) if the file declares no
// keys at all or its RGKN root entry offset is invalid (§4.8
// "get_root_key").
func (f *File) GetRootKey() (*Key, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, &Error{Kind: ErrKindInvalidArgument, Msg: "file is closed"}
	}
	rk, err := f.cache.Root()
	if err != nil {
		return nil, translateResolverErr(err)
	}
	return wrapKey(rk, f.cache, f.cp), nil
}

// GetKeyByPath resolves a root-relative path (§4.8 "get_key_by_path",
// §4.7 path lookup).
func (f *File) GetKeyByPath(path string) (*Key, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, &Error{Kind: ErrKindInvalidArgument, Msg: "file is closed"}
	}
	rk, err := f.cache.FindPath(nil, path)
	if err != nil {
		return nil, translateResolverErr(err)
	}
	return wrapKey(rk, f.cache, f.cp), nil
}

// IsCorrupted reports whether any local corruption has been observed
// anywhere in the file so far (§4.8 "is_corrupted").
func (f *File) IsCorrupted() bool {
	return f.cache.IsCorrupted()
}

// SignalAbort requests that the next operation on this handle to reach a
// checkpoint (an in-progress one, or else a later one) fail with
// ErrAbortRequested (§4.8 "signal_abort", §5 Cancellation). The flag is
// cleared when that operation observes it, so the handle remains usable
// afterward.
func (f *File) SignalAbort() {
	f.cache.SignalAbort()
}
