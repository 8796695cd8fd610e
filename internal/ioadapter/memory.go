package ioadapter

import "sync"

// memoryAdapter wraps an in-memory byte range. Useful for embedded hives,
// already-loaded buffers, or tests.
type memoryAdapter struct {
	mu     sync.Mutex
	data   []byte
	closed bool
}

// NewMemory wraps buf as an Adapter without copying it. The caller must
// not mutate buf for the lifetime of the adapter.
func NewMemory(buf []byte) Adapter {
	return &memoryAdapter{data: buf}
}

func (m *memoryAdapter) ReadAt(offset int64, buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrBounds
	}
	if offset < 0 || offset > int64(len(m.data)) {
		return 0, ErrBounds
	}
	n := copy(buf, m.data[offset:])
	return n, nil
}

func (m *memoryAdapter) Len() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data))
}

func (m *memoryAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}
