// SPDX-License-Identifier: Apache-2.0

package arenabox

import "errors"

var (
	// ErrScopeActive is returned when a box already has a mutation scope open.
	ErrScopeActive = errors.New("arenabox: mutation scope already open")

	// ErrConsumed is returned when a box was moved by Take or NewFrom.
	ErrConsumed = errors.New("arenabox: box was moved")

	// ErrReleased is returned when a box was released.
	ErrReleased = errors.New("arenabox: box was released")
)

const (
	errUseAfterRelease = "arenabox: use after Release"
	errScopeClosed     = "arenabox: allocator used outside its scope"
	errStaleView       = "arenabox: view used after the box was mutated or moved"
)
