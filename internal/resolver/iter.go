package resolver

import "github.com/cregfs/creg/internal/format"

// ChildIter walks a key's children in traversal order (first-child then
// next-siblings), lazily materializing each one. A fresh ChildIter is
// created per Children call, so enumeration is always restartable
// (§4.7, §8 property 2).
type ChildIter struct {
	c       *Cache
	next    uint32
	visited map[uint32]struct{}
	limit   int
	done    bool
}

// Children returns a restartable iterator over k's subkeys.
func (c *Cache) Children(k *Key) *ChildIter {
	return &ChildIter{
		c:       c,
		next:    k.firstChildLink,
		visited: make(map[uint32]struct{}),
		limit:   int(c.entryCount) + 1,
	}
}

// Next returns the next child, or (nil, nil) once enumeration is
// exhausted (normally or because corruption truncated it). A non-nil
// error means the traversal was aborted or an RGDB page read failed.
func (it *ChildIter) Next() (*Key, error) {
	if it.done {
		return nil, nil
	}
	c := it.c

	if format.IsSentinel(it.next) {
		it.done = true
		return nil, nil
	}
	if c.checkAbort() {
		it.done = true
		return nil, ErrAbort
	}

	c.mu.Lock()
	if _, seen := it.visited[it.next]; seen || len(it.visited) > it.limit {
		c.markCorrupted("rgkn", "cycle detected while enumerating children")
		c.mu.Unlock()
		it.done = true
		return nil, nil
	}
	it.visited[it.next] = struct{}{}

	entry, ok := c.entryAt(it.next)
	if !ok {
		c.markCorrupted("rgkn", "child link outside region")
		c.mu.Unlock()
		it.done = true
		return nil, nil
	}
	key, err := c.materializeLocked(it.next, entry)
	c.mu.Unlock()
	if err != nil {
		it.done = true
		return nil, err
	}

	it.next = entry.NextSiblingLink
	return key, nil
}

// ValueIter walks a key's values in on-page order. Values are decoded
// eagerly at key materialization, so iteration never performs I/O, but
// the iterator is still restartable via a fresh Values call (§4.7).
type ValueIter struct {
	values []*Value
	idx    int
}

// Values returns a restartable iterator over k's values.
func (c *Cache) Values(k *Key) *ValueIter {
	return &ValueIter{values: k.values}
}

// Next returns the next value and true, or (nil, false) once exhausted.
func (it *ValueIter) Next() (*Value, bool) {
	if it.idx >= len(it.values) {
		return nil, false
	}
	v := it.values[it.idx]
	it.idx++
	return v, true
}
