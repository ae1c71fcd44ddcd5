// SPDX-License-Identifier: Apache-2.0

package arenabox

// Scope is the mutation scope of a box. It gives write access to the box's
// data and allocation access to its arena at the same time, so freshly
// allocated handles can be stored in the data.
//
// A Scope is only valid inside the function passed to Box.Mutate. It
// implements Allocator, so it can be passed to Alloc, NewSlice and friends.
type Scope[T any] struct {
	access
	data *T
}

// Data returns a pointer to the box's data. The pointer must not be used
// after the scope is closed.
func (s *Scope[T]) Data() *T {
	_ = s.arena()
	return s.data
}

// Arena returns the allocator for the box's arena.
func (s *Scope[T]) Arena() Allocator {
	_ = s.arena()
	return &s.access
}
