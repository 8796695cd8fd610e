package ioadapter

import "sync"

// fileAdapter wraps a memory-mapped (or, where unavailable, fully read)
// file. The short-read-near-EOF and bounds-error contracts of Adapter are
// satisfied identically regardless of which map() backend produced data.
type fileAdapter struct {
	mu     sync.Mutex
	data   []byte
	unmap  func() error
	closed bool
}

// OpenFile maps path into memory (mmap where supported, a full read
// otherwise) and returns an Adapter over its contents.
func OpenFile(path string) (Adapter, error) {
	data, unmap, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	return &fileAdapter{data: data, unmap: unmap}, nil
}

func (f *fileAdapter) ReadAt(offset int64, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrBounds
	}
	if offset < 0 || offset > int64(len(f.data)) {
		return 0, ErrBounds
	}
	n := copy(buf, f.data[offset:])
	return n, nil
}

func (f *fileAdapter) Len() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.data))
}

func (f *fileAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if f.unmap != nil {
		return f.unmap()
	}
	return nil
}
