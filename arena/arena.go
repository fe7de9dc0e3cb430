// Package arena provides compact slice-backed storage with soft deletion.
//
// Every IR node lives in an arena and is referred to by a 32-bit ID. IDs are
// dense, cache-friendly, and valid until Compact is called; deleting a node
// only tombstones its slot so that in-flight iteration and outstanding IDs
// stay usable. Index 0 is reserved as the null sentinel, so the zero value of
// any ID type means "no reference".
package arena

import (
	"fmt"
	"iter"

	"fortio.org/safecast"
)

// ID is the constraint for arena identifier types. Concrete ID types are
// distinct uint32 definitions so that statement, block, and value IDs cannot
// be mixed up at compile time.
type ID interface {
	~uint32
}

type slot[T any] struct {
	data    T
	deleted bool
}

// Arena stores items of type T addressed by IDs of type I.
//
// Slot 0 is reserved: the first Alloc returns ID 1. Tokens from one arena
// must never be used with another.
type Arena[I ID, T any] struct {
	slots []slot[T]
}

// New creates an arena with an optional capacity hint.
func New[I ID, T any](capacity uint32) *Arena[I, T] {
	if capacity == 0 {
		capacity = 16
	}
	return &Arena[I, T]{
		slots: make([]slot[T], 1, capacity+1), // index 0 reserved for the null ID
	}
}

// Alloc appends a new live item and returns its ID. Slots are never reused
// until Compact runs.
func (a *Arena[I, T]) Alloc(item T) I {
	raw, err := safecast.Conv[uint32](len(a.slots))
	if err != nil {
		panic(fmt.Errorf("arena overflow: %w", err))
	}
	a.slots = append(a.slots, slot[T]{data: item})
	return I(raw)
}

// NextID returns the ID the next Alloc call will produce.
func (a *Arena[I, T]) NextID() I {
	raw, err := safecast.Conv[uint32](len(a.slots))
	if err != nil {
		panic(fmt.Errorf("arena overflow: %w", err))
	}
	return I(raw)
}

// Get returns a pointer to the item for id. Reading a tombstoned slot fails
// with ErrDeleted; an ID the arena never issued fails with ErrOutOfBounds.
func (a *Arena[I, T]) Get(id I) (*T, error) {
	if id == 0 || int(id) >= len(a.slots) {
		return nil, &Error{Kind: OutOfBounds, ID: uint32(id)}
	}
	s := &a.slots[id]
	if s.deleted {
		return nil, &Error{Kind: Deleted, ID: uint32(id)}
	}
	return &s.data, nil
}

// MustGet is Get for IDs the caller knows are live. It panics on failure and
// exists for internal traversals where a dangling ID is a bug, not an input.
func (a *Arena[I, T]) MustGet(id I) *T {
	item, err := a.Get(id)
	if err != nil {
		panic(err)
	}
	return item
}

// MarkDeleted tombstones the slot for id. Reports whether the slot was live.
func (a *Arena[I, T]) MarkDeleted(id I) bool {
	if id == 0 || int(id) >= len(a.slots) {
		return false
	}
	s := &a.slots[id]
	if s.deleted {
		return false
	}
	s.deleted = true
	return true
}

// IsLive reports whether id refers to a live slot.
func (a *Arena[I, T]) IsLive(id I) bool {
	return id != 0 && int(id) < len(a.slots) && !a.slots[id].deleted
}

// Len reports the number of slots issued, live or tombstoned, excluding the
// reserved sentinel.
func (a *Arena[I, T]) Len() int {
	return len(a.slots) - 1
}

// LiveLen reports the number of live slots.
func (a *Arena[I, T]) LiveLen() int {
	n := 0
	for i := 1; i < len(a.slots); i++ {
		if !a.slots[i].deleted {
			n++
		}
	}
	return n
}

// IterLive yields each live (ID, item) pair in allocation order.
func (a *Arena[I, T]) IterLive() iter.Seq2[I, *T] {
	return func(yield func(I, *T) bool) {
		for i := 1; i < len(a.slots); i++ {
			if a.slots[i].deleted {
				continue
			}
			if !yield(I(i), &a.slots[i].data) {
				return
			}
		}
	}
}

// Compact drops tombstoned slots and renumbers the survivors densely,
// preserving allocation order. The returned map translates old IDs to new
// ones; applying it to every external reference is the caller's
// responsibility (see the rewrite utilities in package ir).
func (a *Arena[I, T]) Compact() IDMap[I] {
	remap := IDMap[I]{moves: make(map[I]I, len(a.slots)-1)}
	next := 1
	for i := 1; i < len(a.slots); i++ {
		if a.slots[i].deleted {
			continue
		}
		if next != i {
			a.slots[next] = a.slots[i]
		}
		remap.moves[I(i)] = I(next)
		next++
	}
	a.slots = a.slots[:next]
	return remap
}

// IDMap is the renumbering produced by Compact.
type IDMap[I ID] struct {
	moves map[I]I
}

// Lookup translates an old ID. The null ID maps to itself; an ID whose slot
// was tombstoned at compaction time reports ok=false.
func (m IDMap[I]) Lookup(old I) (I, bool) {
	if old == 0 {
		return 0, true
	}
	id, ok := m.moves[old]
	return id, ok
}

// Apply translates old in place, zeroing it if the slot was dropped.
func (m IDMap[I]) Apply(old *I) {
	id, ok := m.Lookup(*old)
	if !ok {
		id = 0
	}
	*old = id
}

// Identity reports whether the compaction moved nothing.
func (m IDMap[I]) Identity() bool {
	for old, now := range m.moves {
		if old != now {
			return false
		}
	}
	return true
}
