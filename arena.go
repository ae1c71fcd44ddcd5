// SPDX-License-Identifier: Apache-2.0

package arenabox

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"
)

const (
	minBufferSize = 1024 * 32 // 32KB
)

// arenaIDs hands out arena ids. Zero is reserved for zero handles.
var arenaIDs atomic.Uint32

func nextArenaID() uint32 {
	for {
		if id := arenaIDs.Add(1); id != 0 {
			return id
		}
	}
}

// Arena is a monotonic allocator. Memory is handed out from a list of chunks
// that are never moved or grown, so a handle stays resolvable until the arena
// is Reset or Released.
//
// An Arena is not safe for concurrent use.
type Arena struct {
	id                 uint32
	chunks             []*chunk
	peak               uintptr // tracks peak allocated space
	minBufferSize      uintptr // minimum size for new chunks
	initialBufferCount int     // number of initial chunks to create
	released           bool
}

type chunk struct {
	buf    []byte
	offset uintptr
	size   uintptr
}

func newChunk(size int) *chunk {
	return &chunk{size: uintptr(size)}
}

func (c *chunk) alloc(size, alignment uintptr) (uintptr, bool) {
	if c.buf == nil {
		if c.size == 0 {
			return 0, false
		}
		c.buf = make([]byte, c.size) // allocate chunk lazily
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(c.buf)))
	start := alignUp(base+c.offset, alignment) - base
	if start+size > c.size {
		return 0, false
	}
	c.offset = start + size

	// Chunks are reused after Reset.
	clear(c.buf[start:c.offset])

	return start, true
}

func (c *chunk) release() {
	c.offset = 0
	c.buf = nil
}

func alignUp(p, alignment uintptr) uintptr {
	if alignment <= 1 {
		return p
	}
	return (p + alignment - 1) &^ (alignment - 1)
}

// ArenaOption represents a configuration option for an arena.
type ArenaOption func(*Arena)

// WithMinBufferSize sets the minimum chunk size for chunks created by the arena.
func WithMinBufferSize(size int) ArenaOption {
	return func(a *Arena) {
		a.minBufferSize = uintptr(size)
	}
}

// WithInitialBufferCount sets the number of chunks created up front.
func WithInitialBufferCount(count int) ArenaOption {
	return func(a *Arena) {
		a.initialBufferCount = count
	}
}

// NewArena creates a new arena with optional configuration.
// If no options are provided, it uses 32KB chunks and creates 1 initial chunk.
func NewArena(opts ...ArenaOption) *Arena {
	a := &Arena{
		id:                 nextArenaID(),
		minBufferSize:      minBufferSize,
		initialBufferCount: 1,
	}
	for _, opt := range opts {
		opt(a)
	}
	for i := 0; i < a.initialBufferCount; i++ {
		a.chunks = append(a.chunks, newChunk(int(a.minBufferSize)))
	}
	return a
}

// ID returns the arena's current id. It changes on every Reset.
func (a *Arena) ID() uint32 {
	return a.id
}

func (a *Arena) alloc(size, alignment uintptr) span {
	if a.released {
		panic(errUseAfterRelease)
	}
	if size > math.MaxUint32 {
		panic(fmt.Sprintf("arenabox: allocation of %d bytes exceeds chunk limit", size))
	}
	// zero-sized values still get a distinct, addressable slot
	if size == 0 {
		size = 1
	}
	for i, c := range a.chunks {
		if off, ok := c.alloc(size, alignment); ok {
			a.trackPeak()
			return span{arena: a.id, chunk: uint32(i), off: uint32(off)}
		}
	}

	// No existing chunk has enough space, create a new one large enough
	// for the worst case alignment padding.
	newSize := size + alignment - 1
	if newSize < a.minBufferSize {
		newSize = a.minBufferSize
	}
	c := newChunk(int(newSize))
	a.chunks = append(a.chunks, c)
	Logger().Debug("arena grew",
		zap.Uint32("arena", a.id),
		zap.Int("chunks", len(a.chunks)),
		zap.Uintptr("chunk_size", newSize))

	off, ok := c.alloc(size, alignment)
	if !ok {
		// This should never happen since we just created a chunk large enough
		panic("arenabox: failed to allocate on newly created chunk")
	}
	a.trackPeak()
	return span{arena: a.id, chunk: uint32(len(a.chunks) - 1), off: uint32(off)}
}

func (a *Arena) trackPeak() {
	if l := a.len(); l > a.peak {
		a.peak = l
	}
}

// check panics unless h can be resolved against a.
func (a *Arena) check(h span) {
	if a.released {
		panic(errUseAfterRelease)
	}
	if h.arena != a.id {
		panic(fmt.Sprintf("arenabox: handle from arena %d resolved against arena %d", h.arena, a.id))
	}
}

// bytes returns the n bytes at h.
func (a *Arena) bytes(h span, n uintptr) []byte {
	a.check(h)
	c := a.chunks[h.chunk]
	end := uintptr(h.off) + n
	return c.buf[h.off:end:end]
}

func (a *Arena) ptr(h span) unsafe.Pointer {
	a.check(h)
	return unsafe.Pointer(&a.chunks[h.chunk].buf[h.off])
}

// Owns reports whether h was allocated by the arena since its last Reset.
func (a *Arena) Owns(h Handle) bool {
	return !a.released && h.ArenaID() == a.id
}

// Reset discards every allocation but keeps the chunks for reuse.
// The arena gets a new id, so handles allocated before the Reset panic
// when resolved.
func (a *Arena) Reset() {
	if a.released {
		panic(errUseAfterRelease)
	}
	for _, c := range a.chunks {
		c.offset = 0
	}
	a.id = nextArenaID()
}

// Release drops the arena's chunks. The arena must not be used afterwards.
func (a *Arena) Release() {
	for _, c := range a.chunks {
		c.release()
	}
	a.chunks = nil
	a.released = true
}

// Released reports whether Release has been called.
func (a *Arena) Released() bool {
	return a.released
}

func (a *Arena) len() uintptr {
	var total uintptr
	for _, c := range a.chunks {
		total += c.offset
	}
	return total
}

// Len returns the total number of bytes currently allocated in the arena,
// including alignment padding.
func (a *Arena) Len() int {
	return int(a.len())
}

// Cap returns the total capacity of the arena's chunks.
func (a *Arena) Cap() int {
	var total uintptr
	for _, c := range a.chunks {
		total += c.size
	}
	return int(total)
}

// Peak returns the high-water mark of Len. It is not reset by Reset.
func (a *Arena) Peak() int {
	return int(a.peak)
}

// Stats is a snapshot of arena usage.
type Stats struct {
	Len         int     // bytes in use
	Cap         int     // total chunk capacity
	Peak        int     // high-water mark of Len
	Chunks      int     // number of chunks
	Utilization float64 // Len / Cap, 0 when Cap is 0
}

// Stats returns a snapshot of the arena's usage.
func (a *Arena) Stats() Stats {
	s := Stats{
		Len:    a.Len(),
		Cap:    a.Cap(),
		Peak:   a.Peak(),
		Chunks: len(a.chunks),
	}
	if s.Cap > 0 {
		s.Utilization = float64(s.Len) / float64(s.Cap)
	}
	return s
}
