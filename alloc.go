// SPDX-License-Identifier: Apache-2.0

package arenabox

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// Reader resolves handles against an arena.
//
// Strings returned by a Reader are copies and outlive the arena. Byte slices
// point into arena memory: they must not be modified, and their contents are
// only meaningful until the arena is Reset or Released.
type Reader interface {
	// String returns a copy of the string s refers to.
	String(s Str) string

	// Bytes returns the bytes b refers to.
	Bytes(b Bytes) []byte

	// Owns reports whether h was allocated from the underlying arena.
	Owns(h Handle) bool

	arena() *Arena
}

// Allocator allocates in an arena. The allocators passed to builders,
// transforms and mutation scopes are only valid for the duration of the call
// they were passed to.
type Allocator interface {
	Reader

	// AllocString copies s into the arena.
	AllocString(s string) Str

	// AllocBytes copies b into the arena.
	AllocBytes(b []byte) Bytes

	// Concat allocates the concatenation of parts.
	Concat(parts ...Str) Str

	// Sprintf formats according to a format specifier directly into the arena.
	Sprintf(format string, args ...any) Str
}

func (a *Arena) arena() *Arena {
	return a
}

// String satisfies the Reader interface.
func (a *Arena) String(s Str) string {
	if s.IsZero() {
		return ""
	}
	return string(a.bytes(s.span, uintptr(s.n)))
}

// UnsafeString returns the string s refers to without copying it.
//
// The result aliases arena memory. Once the arena is Reset or Released its
// bytes may be overwritten by later allocations, so it must not be kept past
// that point, stored in maps, or handed to code that retains it.
func (a *Arena) UnsafeString(s Str) string {
	if s.IsZero() {
		return ""
	}
	b := a.bytes(s.span, uintptr(s.n))
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// Bytes satisfies the Reader interface.
func (a *Arena) Bytes(b Bytes) []byte {
	if b.IsZero() {
		return nil
	}
	return a.bytes(b.span, uintptr(b.n))
}

// AllocString satisfies the Allocator interface.
func (a *Arena) AllocString(s string) Str {
	if len(s) == 0 {
		return Str{}
	}
	h := a.alloc(uintptr(len(s)), 1)
	h.n = uint32(len(s))
	copy(a.bytes(h, uintptr(h.n)), s)
	return Str{h}
}

// AllocBytes satisfies the Allocator interface.
func (a *Arena) AllocBytes(b []byte) Bytes {
	if len(b) == 0 {
		return Bytes{}
	}
	h := a.alloc(uintptr(len(b)), 1)
	h.n = uint32(len(b))
	copy(a.bytes(h, uintptr(h.n)), b)
	return Bytes{h}
}

// Concat satisfies the Allocator interface.
func (a *Arena) Concat(parts ...Str) Str {
	n := 0
	for _, p := range parts {
		if !p.IsZero() {
			a.check(p.span)
		}
		n += p.Len()
	}
	if n == 0 {
		return Str{}
	}
	h := a.alloc(uintptr(n), 1)
	h.n = uint32(n)
	dst := a.bytes(h, uintptr(n))[:0]
	for _, p := range parts {
		if !p.IsZero() {
			dst = append(dst, a.bytes(p.span, uintptr(p.n))...)
		}
	}
	return Str{h}
}

// Sprintf satisfies the Allocator interface.
func (a *Arena) Sprintf(format string, args ...any) Str {
	b := NewBuffer(a)
	_, _ = fmt.Fprintf(b, format, args...)
	return b.Str()
}

// access is the Allocator handed to caller-supplied closures. It stops working
// once the closure returns.
type access struct {
	a      *Arena
	closed bool
}

func (x *access) arena() *Arena {
	if x.closed {
		panic(errScopeClosed)
	}
	return x.a
}

func (x *access) close() {
	x.closed = true
}

func (x *access) String(s Str) string                     { return x.arena().String(s) }
func (x *access) Bytes(b Bytes) []byte                    { return x.arena().Bytes(b) }
func (x *access) Owns(h Handle) bool                      { return x.arena().Owns(h) }
func (x *access) AllocString(s string) Str                { return x.arena().AllocString(s) }
func (x *access) AllocBytes(b []byte) Bytes               { return x.arena().AllocBytes(b) }
func (x *access) Concat(parts ...Str) Str                 { return x.arena().Concat(parts...) }
func (x *access) Sprintf(format string, args ...any) Str { return x.arena().Sprintf(format, args...) }

// Alloc stores v in the arena and returns a handle to it.
// T must not contain Go pointers; it may contain other handles.
func Alloc[T any](a Allocator, v T) Ref[T] {
	mustBePointerFree[T]()
	ar := a.arena()
	var x T
	h := ar.alloc(unsafe.Sizeof(x), unsafe.Alignof(x))
	*(*T)(ar.ptr(h)) = v
	return Ref[T]{h}
}

// Load returns the value ref points to. It panics if ref is nil.
func Load[T any](r Reader, ref Ref[T]) T {
	if ref.IsZero() {
		panic("arenabox: load of nil Ref")
	}
	return *(*T)(r.arena().ptr(ref.span))
}

// Store overwrites the value ref points to. It panics if ref is nil.
func Store[T any](a Allocator, ref Ref[T], v T) {
	if ref.IsZero() {
		panic("arenabox: store to nil Ref")
	}
	*(*T)(a.arena().ptr(ref.span)) = v
}

// pointerFree caches the result of isPointerFree per type.
var pointerFree sync.Map // map[reflect.Type]bool

func mustBePointerFree[T any]() {
	t := reflect.TypeFor[T]()
	ok, cached := pointerFree.Load(t)
	if !cached {
		ok = isPointerFree(t)
		pointerFree.Store(t, ok)
	}
	if !ok.(bool) {
		panic(fmt.Sprintf("arenabox: %s holds Go pointers and cannot be stored in an arena", t))
	}
}

// isPointerFree reports whether values of t can live in memory the garbage
// collector does not scan.
func isPointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || isPointerFree(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !isPointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return false
}
