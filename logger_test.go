// SPDX-License-Identifier: Apache-2.0

package arenabox

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerDefaultsToNop(t *testing.T) {
	require.NotNil(t, Logger())
	require.Same(t, Logger(), Logger())
}

func TestLoggerRecordsBoxLifecycle(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	p := NewPool()
	b := New(func(a Allocator) message {
		return message{Msg: a.AllocString("logged")}
	}, WithPool(p, 7))
	b.Release()

	require.Equal(t, 1, logs.FilterMessage("pool created arena").Len())
	require.Equal(t, 1, logs.FilterMessage("box released").Len())

	require.Panics(t, func() {
		New(func(Allocator) message { panic("boom") })
	})
	require.Equal(t, 1, logs.FilterMessage("box construction aborted").Len())
}

func TestLoggerRecordsPoolReuse(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	p := NewPool()
	item := p.Acquire(3)
	p.Release(item)
	// item keeps the weak pointer alive
	require.Same(t, item, p.Acquire(3))
	require.Equal(t, 1, logs.FilterMessage("pool reused arena").Len())
}

func TestLoggerRecordsArenaGrowth(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	a := NewArena(WithMinBufferSize(16))
	a.AllocString("0123456789")
	a.AllocString("0123456789")

	entries := logs.FilterMessage("arena grew").All()
	require.Len(t, entries, 1)
	require.Equal(t, int64(2), entries[0].ContextMap()["chunks"])
}
