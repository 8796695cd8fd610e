package creg

import (
	"github.com/cregfs/creg/internal/codepage"
	"github.com/cregfs/creg/internal/resolver"
)

// Key is the public facade over a resolved key (§3 Key, §4.7).
type Key struct {
	rk    *resolver.Key
	cache *resolver.Cache
	cp    *codepage.Codepage
}

func wrapKey(rk *resolver.Key, cache *resolver.Cache, cp *codepage.Codepage) *Key {
	if rk == nil {
		return nil
	}
	return &Key{rk: rk, cache: cache, cp: cp}
}

// Name returns the key's UTF-8 name ("" if unresolvable, §4.6).
func (k *Key) Name() string { return k.rk.Name() }

// IsCorrupted reports whether this specific key failed to fully resolve,
// grounded on pycreg_key_is_corrupted (SPEC_FULL.md §6 supplement).
func (k *Key) IsCorrupted() bool { return k.rk.IsCorrupted() }

// Identity returns the key's stable (rgdb-index, key-id) pair, the
// natural analogue of pycreg_key_get_offset for this format (links are
// index pairs, not byte offsets).
func (k *Key) Identity() (rgdbIndex, keyID uint16) {
	id := k.rk.Identity()
	return id.RGDBIndex, id.KeyID
}

// Parent returns k's parent, or nil if k is the root.
func (k *Key) Parent() (*Key, error) {
	rk, err := k.cache.Parent(k.rk)
	if err != nil {
		return nil, translateResolverErr(err)
	}
	return wrapKey(rk, k.cache, k.cp), nil
}

// ChildIter is a restartable, lazy iterator over a key's subkeys.
type ChildIter struct {
	it    *resolver.ChildIter
	cache *resolver.Cache
	cp    *codepage.Codepage
}

// Children returns a fresh iterator over k's subkeys (§4.7).
func (k *Key) Children() *ChildIter {
	return &ChildIter{it: k.cache.Children(k.rk), cache: k.cache, cp: k.cp}
}

// Next returns the next child, or (nil, nil) once exhausted.
func (it *ChildIter) Next() (*Key, error) {
	rk, err := it.it.Next()
	if err != nil {
		return nil, translateResolverErr(err)
	}
	return wrapKey(rk, it.cache, it.cp), nil
}

// ValueIter is a restartable iterator over a key's values.
type ValueIter struct {
	it *resolver.ValueIter
	cp *codepage.Codepage
}

// Values returns a fresh iterator over k's values, in on-page order.
func (k *Key) Values() *ValueIter {
	return &ValueIter{it: k.cache.Values(k.rk), cp: k.cp}
}

// Next returns the next value and true, or (nil, false) once exhausted.
func (it *ValueIter) Next() (*Value, bool) {
	rv, ok := it.it.Next()
	if !ok {
		return nil, false
	}
	return wrapValue(rv, it.cp), true
}

// SubkeyByName looks up an immediate child by name, case-insensitively
// over ASCII (§4.6), grounded on pycreg_key_get_sub_key_by_name.
func (k *Key) SubkeyByName(name string) (*Key, bool, error) {
	rk, err := k.cache.FindPath(k.rk, name)
	if err != nil {
		return nil, false, translateResolverErr(err)
	}
	if rk == nil {
		return nil, false, nil
	}
	return wrapKey(rk, k.cache, k.cp), true, nil
}

// SubkeyByPath resolves path relative to k (or from the root, if path
// has a leading separator), grounded on pycreg_key_get_sub_key_by_path.
func (k *Key) SubkeyByPath(path string) (*Key, bool, error) {
	rk, err := k.cache.FindPath(k.rk, path)
	if err != nil {
		return nil, false, translateResolverErr(err)
	}
	if rk == nil {
		return nil, false, nil
	}
	return wrapKey(rk, k.cache, k.cp), true, nil
}

// ValueByName looks up a value by name, case-insensitively over ASCII,
// grounded on pycreg_key_get_value_by_name.
func (k *Key) ValueByName(name string) (*Value, bool, error) {
	it := k.Values()
	for {
		v, ok := it.Next()
		if !ok {
			return nil, false, nil
		}
		if resolver.ASCIIFoldEqual(v.Name(), name) {
			return v, true, nil
		}
	}
}

func translateResolverErr(err error) error {
	if err == nil {
		return nil
	}
	if err == resolver.ErrAbort {
		return ErrAbortRequested
	}
	return wrapIO(err)
}
