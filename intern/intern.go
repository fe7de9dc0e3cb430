// Package intern deduplicates keys into dense integer handles.
//
// A table is a bijection between keys and handles that preserves insertion
// order. Symbol tables use string keys; structured keys (signatures) work as
// long as the key type is comparable.
package intern

import (
	"fmt"
	"iter"

	"fortio.org/safecast"
)

// Handle is the constraint for intern handle types. Handle 0 is reserved as
// the null sentinel; the first interned key receives handle 1.
type Handle interface {
	~uint32
}

// Table interns keys of type K into handles of type H.
type Table[K comparable, H Handle] struct {
	byHandle []K
	index    map[K]H
}

// NewTable creates an empty table.
func NewTable[K comparable, H Handle]() *Table[K, H] {
	return &Table[K, H]{
		byHandle: make([]K, 1), // index 0 reserved for the null handle
		index:    make(map[K]H),
	}
}

// Intern returns the handle for key, inserting it if not present.
func (t *Table[K, H]) Intern(key K) H {
	if h, ok := t.index[key]; ok {
		return h
	}
	raw, err := safecast.Conv[uint32](len(t.byHandle))
	if err != nil {
		panic(fmt.Errorf("intern table overflow: %w", err))
	}
	h := H(raw)
	t.byHandle = append(t.byHandle, key)
	t.index[key] = h
	return h
}

// Lookup returns the key for a handle. Reports ok=false for the null handle
// and for handles the table never issued.
func (t *Table[K, H]) Lookup(h H) (K, bool) {
	if h == 0 || int(h) >= len(t.byHandle) {
		var zero K
		return zero, false
	}
	return t.byHandle[h], true
}

// MustLookup is Lookup for handles the caller knows are valid.
func (t *Table[K, H]) MustLookup(h H) K {
	key, ok := t.Lookup(h)
	if !ok {
		panic(fmt.Sprintf("intern: invalid handle %d", h))
	}
	return key
}

// Resolve returns the handle for a key if it has been interned.
func (t *Table[K, H]) Resolve(key K) (H, bool) {
	h, ok := t.index[key]
	return h, ok
}

// Len reports the number of interned keys, excluding the reserved sentinel.
func (t *Table[K, H]) Len() int {
	return len(t.byHandle) - 1
}

// All yields each (handle, key) pair in insertion order.
func (t *Table[K, H]) All() iter.Seq2[H, K] {
	return func(yield func(H, K) bool) {
		for i := 1; i < len(t.byHandle); i++ {
			if !yield(H(i), t.byHandle[i]) {
				return
			}
		}
	}
}
