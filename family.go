// SPDX-License-Identifier: Apache-2.0

package arenabox

import (
	"fmt"
	"iter"
)

// A data shape exists in two forms. The erased form is what a Box stores: its
// fields are handles, which mean nothing without the arena they came from. The
// attached form is the same shape with every handle resolved against that
// arena. Boxes only ever attach a shape to their own arena.

// Shape is implemented by erased shapes that know how to attach themselves.
type Shape[A any] interface {
	Attach(r Reader) A
}

// Linked is implemented by shapes that can enumerate the handles they hold.
// Boxes check that every non-zero handle of a Linked shape belongs to the
// box's arena whenever the shape is built, transformed or mutated.
type Linked interface {
	Handles(r Reader) iter.Seq[Handle]
}

// Displayer is implemented by shapes that render themselves for %v and %s.
type Displayer interface {
	Display(r Reader) string
}

// Debugger is implemented by shapes that render themselves for %+v and %#v.
type Debugger interface {
	Debug(r Reader) string
}

// Handles returns a sequence over hs, for use in Linked implementations.
func Handles(hs ...Handle) iter.Seq[Handle] {
	return func(yield func(Handle) bool) {
		for _, h := range hs {
			if !yield(h) {
				return
			}
		}
	}
}

// SliceHandles returns s followed by every element of s.
func SliceHandles[T Handle](r Reader, s Slice[T]) iter.Seq[Handle] {
	return func(yield func(Handle) bool) {
		if !yield(s) {
			return
		}
		if s.IsZero() || !r.Owns(s) {
			return
		}
		for _, h := range LoadSlice(r, s) {
			if !yield(h) {
				return
			}
		}
	}
}

// linked returns the Linked implementation of data, if any.
func linked[T any](data *T) (Linked, bool) {
	if l, ok := any(*data).(Linked); ok {
		return l, true
	}
	l, ok := any(data).(Linked)
	return l, ok
}

// verify panics if data holds a handle that a does not own.
func verify[T any](a *Arena, data *T) {
	l, ok := linked(data)
	if !ok {
		return
	}
	for h := range l.Handles(a) {
		if h == nil || h.IsZero() || a.Owns(h) {
			continue
		}
		panic(fmt.Sprintf("arenabox: %T holds a handle from arena %d, owning arena is %d", *data, h.ArenaID(), a.ID()))
	}
}
