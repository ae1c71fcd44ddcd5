// SPDX-License-Identifier: Apache-2.0

package arenabox

import "strconv"

// Handle is implemented by every arena handle. Handles are plain values:
// copying or moving them never invalidates them, and they can only be
// dereferenced through the arena that allocated them.
type Handle interface {
	// ArenaID returns the id of the arena the handle was allocated from,
	// or 0 for a zero handle.
	ArenaID() uint32

	// IsZero reports whether the handle is the zero value.
	IsZero() bool
}

// span is the position of an allocation. Its meaning of n depends on the
// handle kind: bytes for Str and Bytes, elements for Slice.
type span struct {
	arena uint32
	chunk uint32
	off   uint32
	n     uint32
}

func (s span) ArenaID() uint32 {
	return s.arena
}

func (s span) IsZero() bool {
	return s.arena == 0
}

// Str is an immutable string stored in an arena.
//
// The zero Str is the empty string and resolves against any arena.
type Str struct {
	span
}

// Len returns the length of the string in bytes.
func (s Str) Len() int {
	return int(s.n)
}

// Bytes is an immutable byte sequence stored in an arena.
//
// The zero Bytes is empty and resolves against any arena.
type Bytes struct {
	span
}

// Len returns the number of bytes.
func (b Bytes) Len() int {
	return int(b.n)
}

// Ref is a handle to a value of type T stored in an arena.
//
// The zero Ref is nil and cannot be loaded.
type Ref[T any] struct {
	span
}

func (r Ref[T]) String() string {
	if r.IsZero() {
		return "<nil>"
	}
	return strconv.FormatUint(uint64(r.arena), 10) + ":" +
		strconv.FormatUint(uint64(r.chunk), 10) + ":" +
		strconv.FormatUint(uint64(r.off), 10)
}

// Slice is a handle to a sequence of T stored in an arena.
//
// The zero Slice is empty and resolves against any arena.
type Slice[T any] struct {
	span
	cap uint32
}

// Len returns the number of elements.
func (s Slice[T]) Len() int {
	return int(s.n)
}

// Cap returns the number of elements the backing allocation can hold.
func (s Slice[T]) Cap() int {
	return int(s.cap)
}
