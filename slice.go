// SPDX-License-Identifier: Apache-2.0

package arenabox

import (
	"unsafe"
)

const growThreshold = 256

// MakeSlice allocates a slice of T with the given length and capacity.
// The elements are zeroed.
func MakeSlice[T any](a Allocator, len, cap int) Slice[T] {
	if len < 0 || cap < len {
		panic("arenabox: MakeSlice: len out of range")
	}
	if cap == 0 {
		return Slice[T]{}
	}
	mustBePointerFree[T]()
	var x T
	h := a.arena().alloc(unsafe.Sizeof(x)*uintptr(cap), unsafe.Alignof(x))
	h.n = uint32(len)
	return Slice[T]{span: h, cap: uint32(cap)}
}

// NewSlice allocates a slice holding a copy of vs.
func NewSlice[T any](a Allocator, vs ...T) Slice[T] {
	s := MakeSlice[T](a, len(vs), len(vs))
	if len(vs) > 0 {
		copy(view(a.arena(), s, s.cap), vs)
	}
	return s
}

// AppendSlice appends vs to s, reallocating in the arena when s has no room
// left. Like the built-in append, the result may share memory with s.
func AppendSlice[T any](a Allocator, s Slice[T], vs ...T) Slice[T] {
	if len(vs) == 0 {
		return s
	}
	ar := a.arena()
	s = growSlice(a, s, len(vs))
	copy(view(ar, s, s.cap)[s.n:], vs)
	s.n += uint32(len(vs))
	return s
}

// LoadSlice returns the elements of s. The result points into arena memory
// and must not be modified; use SetAt to change an element.
func LoadSlice[T any](r Reader, s Slice[T]) []T {
	if s.IsZero() {
		return nil
	}
	return view(r.arena(), s, s.n)
}

// SetAt overwrites the i-th element of s.
func SetAt[T any](a Allocator, s Slice[T], i int, v T) {
	if i < 0 || i >= s.Len() {
		panic("arenabox: SetAt: index out of range")
	}
	view(a.arena(), s, s.n)[i] = v
}

func view[T any](ar *Arena, s Slice[T], n uint32) []T {
	p := (*T)(ar.ptr(s.span))
	return unsafe.Slice(p, s.cap)[:n:n]
}

func growSlice[T any](a Allocator, s Slice[T], dataLen int) Slice[T] {
	newLen := s.Len() + dataLen
	newCap := s.Cap()

	if newCap > 0 {
		for newLen > newCap {
			if newCap < growThreshold {
				newCap *= 2
			} else {
				newCap += newCap / 4
			}
		}
	} else {
		newCap = dataLen
	}
	if newCap == s.Cap() {
		return s
	}
	s2 := MakeSlice[T](a, s.Len(), newCap)
	if s.Len() > 0 {
		ar := a.arena()
		copy(view(ar, s2, s2.n), view(ar, s, s.n))
	}
	return s2
}
