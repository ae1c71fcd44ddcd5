// SPDX-License-Identifier: Apache-2.0

package arenabox

import (
	"sync"
	"weak"

	"go.uber.org/zap"
)

// Pool provides a thread-safe pool of arenas for boxes created with WithPool.
// It uses weak pointers to allow garbage collection of unused arenas while
// maintaining a pool of reusable arenas for high-frequency allocation patterns.
//
// Items sit in the pool as weak pointers, so the GC can collect them at any
// time. Acquire tries to get a strong pointer while removing an item from the
// pool; Release resets the arena and turns the item back into a weak pointer.
// This lets the GC size the pool depending on available memory and GC pressure.
type Pool struct {
	pool  []weak.Pointer[PoolItem]
	sizes map[uint64]*poolItemSize
	mu    sync.Mutex
}

// poolItemSize tracks the required memory across the last 50 arenas released
// for a key.
type poolItemSize struct {
	count      int
	totalBytes int
}

// PoolItem wraps an arena handed out by the pool.
type PoolItem struct {
	Arena *Arena
	Key   uint64
}

// NewPool creates a new Pool instance.
func NewPool() *Pool {
	return &Pool{
		sizes: make(map[uint64]*poolItemSize),
	}
}

// Acquire gets an arena from the pool or creates a new one if none are available.
// The key is used to track arena sizes per use case.
func (p *Pool) Acquire(key uint64) *PoolItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.pool) > 0 {
		lastIdx := len(p.pool) - 1
		wp := p.pool[lastIdx]
		p.pool = p.pool[:lastIdx]

		if v := wp.Value(); v != nil {
			v.Key = key
			Logger().Debug("pool reused arena", zap.Uint64("key", key), zap.Uint32("arena", v.Arena.ID()))
			return v
		}
		// collected by the GC, try the next one
	}

	size := p.arenaSize(key)
	Logger().Debug("pool created arena", zap.Uint64("key", key), zap.Int("size", size))
	return &PoolItem{
		Arena: NewArena(WithMinBufferSize(size)),
		Key:   key,
	}
}

// Release resets the item's arena and returns it to the pool.
// The peak memory usage is recorded to size future arenas for the item's key.
func (p *Pool) Release(item *PoolItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release(item)
}

// ReleaseMany releases several items under a single lock.
func (p *Pool) ReleaseMany(items []*PoolItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range items {
		p.release(item)
	}
}

// Len returns the number of items currently waiting in the pool, including
// ones the GC may already have collected.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pool)
}

func (p *Pool) release(item *PoolItem) {
	peak := item.Arena.Peak()
	item.Arena.Reset()

	if size, ok := p.sizes[item.Key]; ok {
		if size.count == 50 {
			size.count = 1
			size.totalBytes = size.totalBytes / 50
		}
		size.count++
		size.totalBytes += peak
	} else {
		p.sizes[item.Key] = &poolItemSize{
			count:      1,
			totalBytes: peak,
		}
	}

	item.Key = 0
	p.pool = append(p.pool, weak.Make(item))
}

// arenaSize returns the chunk size for a new arena for key.
// If no size is recorded, it defaults to 1MB.
func (p *Pool) arenaSize(key uint64) int {
	if size, ok := p.sizes[key]; ok && size.count > 0 && size.totalBytes > 0 {
		return size.totalBytes / size.count
	}
	return 1024 * 1024
}
