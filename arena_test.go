// SPDX-License-Identifier: Apache-2.0

package arenabox

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/require"
)

func TestArenaLen(t *testing.T) {
	arena := NewArena()
	require.Equal(t, 0, arena.Len())

	s1 := arena.AllocString(strings.Repeat("a", 100))
	require.False(t, s1.IsZero())
	require.Equal(t, 100, arena.Len())

	s2 := arena.AllocString(strings.Repeat("b", 200))
	require.False(t, s2.IsZero())
	require.Equal(t, 300, arena.Len())

	// Allocate with alignment
	ref := Alloc(arena, int64(7))
	require.False(t, ref.IsZero())
	require.True(t, arena.Len() >= 308)
}

func TestArenaCap(t *testing.T) {
	arena := NewArena(WithInitialBufferCount(1), WithMinBufferSize(1024))
	require.Equal(t, 1024, arena.Cap())

	arena = NewArena(WithInitialBufferCount(3), WithMinBufferSize(512))
	require.Equal(t, 1536, arena.Cap()) // 512 * 3

	arena = NewArena(WithInitialBufferCount(4), WithMinBufferSize(256))
	require.Equal(t, 1024, arena.Cap()) // 256 * 4
}

func TestArenaLenCapAfterReset(t *testing.T) {
	arena := NewArena(WithInitialBufferCount(1), WithMinBufferSize(1024))

	arena.AllocString(strings.Repeat("x", 100))
	require.Equal(t, 100, arena.Len())
	require.Equal(t, 1024, arena.Cap())

	arena.Reset()
	require.Equal(t, 0, arena.Len())
	require.Equal(t, 1024, arena.Cap())

	arena.AllocString(strings.Repeat("y", 50))
	require.Equal(t, 50, arena.Len())
	require.Equal(t, 1024, arena.Cap())

	arena.Release()
	require.True(t, arena.Released())
	require.Equal(t, 0, arena.Len())
	require.Equal(t, 0, arena.Cap())
}

func TestArenaMultipleChunks(t *testing.T) {
	arena := NewArena(WithInitialBufferCount(3), WithMinBufferSize(100))
	require.Equal(t, 300, arena.Cap())
	require.Equal(t, 0, arena.Len())

	chunk := strings.Repeat("z", 100)
	for i := 1; i <= 3; i++ {
		arena.AllocString(chunk)
		require.Equal(t, 100*i, arena.Len())
	}
	require.Equal(t, 3, arena.Stats().Chunks)

	// no room left, a new chunk is appended
	s := arena.AllocString("!")
	require.Equal(t, 301, arena.Len())
	require.Equal(t, 4, arena.Stats().Chunks)
	require.Equal(t, "!", arena.String(s))
}

func TestArenaAlignment(t *testing.T) {
	arena := NewArena()

	arena.AllocString("a")
	len1 := arena.Len()
	require.Equal(t, 1, len1)

	ref := Alloc(arena, uint64(1))
	len2 := arena.Len()
	require.True(t, len2 > len1)
	require.Zero(t, uintptr(arena.ptr(ref.span))%unsafe.Alignof(uint64(0)))

	arena.AllocString("b")
	ref2 := Alloc(arena, [2]uint64{1, 2})
	require.True(t, arena.Len() > len2)
	require.Zero(t, uintptr(arena.ptr(ref2.span))%unsafe.Alignof(uint64(0)))
	require.Equal(t, [2]uint64{1, 2}, Load(arena, ref2))
}

func TestArenaWithTypes(t *testing.T) {
	arena := NewArena()

	type TestStruct struct {
		a int64
		b int32
		c int16
	}

	ref := Alloc(arena, TestStruct{a: 1, b: 2, c: 3})
	expectedSize := unsafe.Sizeof(TestStruct{})
	require.Equal(t, int(expectedSize), arena.Len())
	require.Equal(t, TestStruct{a: 1, b: 2, c: 3}, Load(arena, ref))

	slice := MakeSlice[int](arena, 10, 20)
	require.Equal(t, 10, slice.Len())
	require.Equal(t, 20, slice.Cap())

	expectedSize += unsafe.Sizeof(int(0)) * 20
	require.Equal(t, int(expectedSize), arena.Len())
}

func TestArenaEdgeCases(t *testing.T) {
	arena := NewArena(WithInitialBufferCount(1), WithMinBufferSize(0))
	require.Equal(t, 0, arena.Cap())
	require.Equal(t, 0, arena.Len())

	s := arena.AllocString("a")
	require.Equal(t, "a", arena.String(s))

	arena = NewArena(WithInitialBufferCount(0), WithMinBufferSize(1024))
	require.Equal(t, 0, arena.Cap())
	require.Equal(t, 0, arena.Len())

	s = arena.AllocString("b")
	require.Equal(t, "b", arena.String(s))
	require.Equal(t, 1024, arena.Cap())
}

func TestArenaPeak(t *testing.T) {
	arena := NewArena()
	require.Equal(t, 0, arena.Peak())

	arena.AllocString(strings.Repeat("p", 100))
	require.Equal(t, 100, arena.Peak())

	arena.AllocString(strings.Repeat("q", 200))
	require.Equal(t, 300, arena.Peak())

	arena.Reset()
	require.Equal(t, 0, arena.Len())
	require.Equal(t, 300, arena.Peak())

	arena.AllocString(strings.Repeat("r", 50))
	require.Equal(t, 300, arena.Peak())
}

func TestArenaStats(t *testing.T) {
	arena := NewArena(WithMinBufferSize(1000))
	arena.AllocString(strings.Repeat("s", 250))

	stats := arena.Stats()
	require.Equal(t, Stats{
		Len:         250,
		Cap:         1000,
		Peak:        250,
		Chunks:      1,
		Utilization: 0.25,
	}, stats)

	require.Zero(t, NewArena(WithInitialBufferCount(0)).Stats().Utilization)
}

func TestArenaZeroHandles(t *testing.T) {
	arena := NewArena()
	require.Equal(t, "", arena.String(Str{}))
	require.Nil(t, arena.Bytes(Bytes{}))
	require.True(t, arena.AllocString("").IsZero())
	require.True(t, arena.AllocBytes(nil).IsZero())
	require.Equal(t, uint32(0), Str{}.ArenaID())
}

func TestArenaResetInvalidatesHandles(t *testing.T) {
	arena := NewArena()
	id := arena.ID()
	s := arena.AllocString("stale")
	require.True(t, arena.Owns(s))

	arena.Reset()
	require.NotEqual(t, id, arena.ID())
	require.False(t, arena.Owns(s))
	require.Panics(t, func() {
		_ = arena.String(s)
	})
}

func TestArenaUseAfterRelease(t *testing.T) {
	arena := NewArena()
	s := arena.AllocString("gone")
	arena.Release()

	require.False(t, arena.Owns(s))
	require.PanicsWithValue(t, errUseAfterRelease, func() {
		arena.AllocString("again")
	})
	require.PanicsWithValue(t, errUseAfterRelease, func() {
		_ = arena.String(s)
	})
	require.PanicsWithValue(t, errUseAfterRelease, func() {
		arena.Reset()
	})
}

func TestArenaForeignHandle(t *testing.T) {
	a := NewArena()
	b := NewArena()
	require.NotEqual(t, a.ID(), b.ID())

	s := a.AllocString("mine")
	require.False(t, b.Owns(s))
	require.Panics(t, func() {
		_ = b.String(s)
	})
}

func TestArenaHandlesSurviveGrowth(t *testing.T) {
	arena := NewArena(WithMinBufferSize(64))

	words := make([]string, 0, 500)
	handles := make([]Str, 0, 500)
	for i := 0; i < 500; i++ {
		w := faker.Word()
		words = append(words, w)
		handles = append(handles, arena.AllocString(w))
	}
	require.Greater(t, arena.Stats().Chunks, 1)

	for i, h := range handles {
		require.Equal(t, words[i], arena.String(h))
	}
}

func BenchmarkArenaAllocString(b *testing.B) {
	arena := NewArena(WithInitialBufferCount(1), WithMinBufferSize(1024*1024))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%10000 == 0 {
			arena.Reset()
		}
		_ = arena.AllocString("benchmark")
	}
}

func BenchmarkArenaLen(b *testing.B) {
	arena := NewArena(WithInitialBufferCount(1), WithMinBufferSize(1024*1024))
	for i := 0; i < 1000; i++ {
		arena.AllocString("0123456789")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = arena.Len()
	}
}
