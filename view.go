// SPDX-License-Identifier: Apache-2.0

package arenabox

import "sync/atomic"

// View is a read-only view of a box's data. It resolves handles against the
// box's arena, and stops resolving them once the box is released.
//
// A view is tied to the state of the box when Get was called: Data panics
// once the box has been mutated or moved since.
type View[T any] struct {
	src  *Arena
	data T
	gen  *atomic.Uint64
	at   uint64
}

func (v View[T]) arena() *Arena {
	return v.src
}

// Data returns a copy of the box's data.
func (v View[T]) Data() T {
	if v.gen != nil && v.gen.Load() != v.at {
		panic(errStaleView)
	}
	return v.data
}

// String returns a copy of the string s refers to.
func (v View[T]) String(s Str) string {
	return v.src.String(s)
}

// Bytes returns the bytes b refers to.
func (v View[T]) Bytes(b Bytes) []byte {
	return v.src.Bytes(b)
}

// Owns reports whether h belongs to the box's arena.
func (v View[T]) Owns(h Handle) bool {
	return v.src.Owns(h)
}
