// SPDX-License-Identifier: Apache-2.0

// Package arenabox packages a value together with the arena that backs it.
//
// A [Box] owns an [Arena] and a value whose fields are arena handles ([Str],
// [Bytes], [Ref], [Slice]) rather than Go pointers. Handles are plain values,
// so a box can be moved, stored in collections or returned from functions
// without invalidating anything; resolving a handle always goes through an
// arena, and resolving it against the wrong arena, or after the arena was
// reset or released, panics.
//
// Construction runs a builder with an [Allocator] for the new arena:
//
//	type Message struct {
//		Text arenabox.Str
//	}
//
//	b := arenabox.New(func(a arenabox.Allocator) Message {
//		return Message{Text: a.AllocString("Something")}
//	})
//	defer b.Release()
//
//	v := b.Get()
//	fmt.Println(v.String(v.Data().Text))
//
// Updates go through the box's single mutation scope, which can allocate and
// write at the same time:
//
//	err := b.Mutate(func(s *arenabox.Scope[Message]) error {
//		s.Data().Text = s.AllocString("Updated")
//		return nil
//	})
//
// [NewFrom] consumes a box and rebuilds its data as a different shape on the
// same arena, keeping every earlier allocation valid. This is convenient for
// error values that collect context as they propagate.
//
// A named box type is a generic alias:
//
//	type ArenaMessage = arenabox.Box[Message]
//
// Values stored with [Alloc] or [NewSlice] must not contain Go pointers;
// this is checked once per type.
//
// Boxes, arenas and scopes are not safe for concurrent use. A box may be
// handed to another goroutine as a whole; [Box.Mutate] refuses to open a
// second scope while one is open.
package arenabox
