package resolver

// Key is a logical key assembled on demand by joining one RGKN key-index
// entry with its corresponding RGDB key-name record (§3 Key). It is owned
// by the Cache; callers hold borrows that remain valid until the owning
// file closes.
type Key struct {
	id          Identity
	entryOffset uint32

	parentLink      uint32
	firstChildLink  uint32
	nextSiblingLink uint32

	name      string
	corrupted bool
	values    []*Value
}

// Identity returns the key's stable (rgdb-index, key-id) pair.
func (k *Key) Identity() Identity { return k.id }

// Name returns the key's UTF-8 name, or "" if its rgdb-index/key-id
// could not be resolved to a name (§4.6 edge case).
func (k *Key) Name() string { return k.name }

// IsCorrupted reports whether this specific key could not be fully
// resolved (distinct from the file-wide corrupted flag, though any key
// corruption also sets the file-wide flag).
func (k *Key) IsCorrupted() bool { return k.corrupted }

// Values returns the key's values in on-page order. The returned slice
// must not be mutated by callers.
func (k *Key) Values() []*Value { return k.values }

// Value is a logical value: a name, a 32-bit type code, and a owned copy
// of its raw data bytes (§3 Value).
type Value struct {
	name string
	typ  uint32
	data []byte
}

// Name returns the value's UTF-8 name.
func (v *Value) Name() string { return v.name }

// Type returns the value's 32-bit type code (§6 value type enumeration).
func (v *Value) Type() uint32 { return v.typ }

// Data returns the value's raw bytes. The returned slice must not be
// mutated by callers; pkg/creg copies it before handing it to the public
// API (§4.9 "data (raw byte copy)").
func (v *Value) Data() []byte { return v.data }
