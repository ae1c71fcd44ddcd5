// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wundergraph/go-arenabox"
)

func TestCallAnnotatesEveryFrame(t *testing.T) {
	err := call(3, nil)

	var oe *OpError
	require.True(t, errors.As(err, &oe))
	require.Equal(t, "read config.yaml <- frame 3 <- frame 2 <- frame 1", oe.Error())

	v := oe.Box.Get()
	require.Equal(t, 3, v.Data().Frames.Len())
	require.Equal(t, int32(2), v.Data().Code)
	oe.Box.Release()
}

func TestCallPooled(t *testing.T) {
	p := arenabox.NewPool()
	err := call(1, []arenabox.Option{arenabox.WithPool(p, 1)})

	var oe *OpError
	require.True(t, errors.As(err, &oe))
	require.Equal(t, "read config.yaml <- frame 1", oe.Error())

	oe.Box.Release()
	require.Equal(t, 1, p.Len())
}

func TestAnnotateForeignError(t *testing.T) {
	base := errors.New("disk full")
	err := annotate(base, "frame 1")
	require.ErrorIs(t, err, base)
	require.Equal(t, "frame 1: disk full", err.Error())
}

func TestAnnotateReleasedBox(t *testing.T) {
	oe := newOpError("write", 1)
	oe.Box.Release()

	err := annotate(oe, "frame 1")
	require.ErrorIs(t, err, arenabox.ErrReleased)
}
