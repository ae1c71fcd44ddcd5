// SPDX-License-Identifier: Apache-2.0

package arenabox

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

const (
	boxIdle int32 = iota
	boxMutating
	boxConsumed
	boxReleased
)

// Box owns an arena together with a value of shape T whose handles point into
// that arena. The two are created together, travel together and are
// destroyed together.
//
// A Box has a single owner. Pass it around as *Box[T]; use Take to hand
// ownership to a new variable so the old one can no longer be used.
type Box[T any] struct {
	state atomic.Int32
	gen   atomic.Uint64 // bumped whenever data is mutated or moved out
	own   owner
	data  T
}

// owner is the arena a box holds, plus the pool it came from.
type owner struct {
	arena *Arena
	pool  *Pool
	item  *PoolItem
}

func (o owner) release() {
	if o.pool != nil {
		o.pool.Release(o.item)
		return
	}
	o.arena.Release()
}

// Option configures how New and TryNew obtain an arena.
type Option func(*options)

type options struct {
	arenaOpts []ArenaOption
	pool      *Pool
	key       uint64
}

// WithArenaOptions configures the arena created for the box.
// It has no effect together with WithPool.
func WithArenaOptions(opts ...ArenaOption) Option {
	return func(o *options) {
		o.arenaOpts = append(o.arenaOpts, opts...)
	}
}

// WithPool makes the box acquire its arena from p under key, and return it to
// p when the box is released.
func WithPool(p *Pool, key uint64) Option {
	return func(o *options) {
		o.pool = p
		o.key = key
	}
}

func acquire(opts []Option) owner {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.pool != nil {
		item := o.pool.Acquire(o.key)
		return owner{arena: item.Arena, pool: o.pool, item: item}
	}
	return owner{arena: NewArena(o.arenaOpts...)}
}

// New creates a box. build runs exactly once with an allocator for the box's
// arena and must return a value whose handles all come from that allocator.
// If build panics, no box is created, the arena is discarded and the panic
// propagates.
func New[T any](build func(a Allocator) T, opts ...Option) *Box[T] {
	b, _ := construct(acquire(opts), func(a Allocator) (T, error) {
		return build(a), nil
	})
	return b
}

// TryNew is like New, but build may fail. The error is returned unchanged
// and no box is created.
func TryNew[T any](build func(a Allocator) (T, error), opts ...Option) (*Box[T], error) {
	return construct(acquire(opts), build)
}

// NewFrom consumes b and builds a box of shape U from b's data, reusing b's
// arena. Handles held by the old data stay valid and may be kept in the new
// one. b cannot be used afterwards, even if fn panics.
//
// NewFrom panics with ErrScopeActive, ErrConsumed or ErrReleased if b cannot
// be consumed.
func NewFrom[T, U any](b *Box[T], fn func(a Allocator, old T) U) *Box[U] {
	nb, err := TryNewFrom(b, func(a Allocator, old T) (U, error) {
		return fn(a, old), nil
	})
	if err != nil {
		panic(err)
	}
	return nb
}

// TryNewFrom is like NewFrom, but fn may fail. When fn returns an error, b is
// still consumed and its arena is discarded.
func TryNewFrom[T, U any](b *Box[T], fn func(a Allocator, old T) (U, error)) (*Box[U], error) {
	own, old, err := b.consume()
	if err != nil {
		return nil, err
	}
	return construct(own, func(a Allocator) (U, error) {
		return fn(a, old)
	})
}

func construct[T any](own owner, build func(a Allocator) (T, error)) (_ *Box[T], err error) {
	done := false
	acc := &access{a: own.arena}
	defer func() {
		acc.close()
		if !done {
			Logger().Debug("box construction aborted", zap.Uint32("arena", own.arena.ID()), zap.Error(err))
			own.release()
		}
	}()

	data, err := build(acc)
	if err != nil {
		return nil, err
	}
	verify(own.arena, &data)

	b := &Box[T]{own: own, data: data}
	done = true
	return b, nil
}

// consume marks b as moved and hands over its arena and data.
func (b *Box[T]) consume() (owner, T, error) {
	var zero T
	if !b.state.CompareAndSwap(boxIdle, boxConsumed) {
		return owner{}, zero, b.stateErr()
	}
	b.gen.Add(1)
	own, data := b.own, b.data
	b.own, b.data = owner{}, zero
	return own, data, nil
}

func (b *Box[T]) stateErr() error {
	switch b.state.Load() {
	case boxMutating:
		return ErrScopeActive
	case boxConsumed:
		return ErrConsumed
	case boxReleased:
		return ErrReleased
	}
	return nil
}

// Take moves ownership to a new box and invalidates b.
func (b *Box[T]) Take() *Box[T] {
	own, data, err := b.consume()
	if err != nil {
		panic(err)
	}
	return &Box[T]{own: own, data: data}
}

// Get returns a read-only view of the box's data. It panics if the box was
// moved or released, or while a mutation scope is open.
func (b *Box[T]) Get() View[T] {
	if err := b.stateErr(); err != nil {
		panic(err)
	}
	return View[T]{src: b.own.arena, data: b.data, gen: &b.gen, at: b.gen.Load()}
}

// Mutate opens the box's mutation scope and runs fn with it. Only one scope
// can be open per box; Mutate returns ErrScopeActive if one already is, and
// ErrConsumed or ErrReleased if the box can no longer be used. The scope is
// closed when fn returns or panics. Errors returned by fn are passed through;
// writes made before the error are kept.
//
// If fn panics, or leaves a handle from another arena in the data, the data
// is restored to its value before Mutate and the panic propagates. Values
// written into the arena through Store or SetAt are not rolled back.
func (b *Box[T]) Mutate(fn func(s *Scope[T]) error) error {
	if !b.state.CompareAndSwap(boxIdle, boxMutating) {
		return b.stateErr()
	}
	prev := b.data
	s := &Scope[T]{access: access{a: b.own.arena}, data: &b.data}
	committed := false
	defer func() {
		s.close()
		if !committed {
			b.data = prev
		}
		b.gen.Add(1)
		b.state.Store(boxIdle)
	}()

	err := fn(s)
	verify(b.own.arena, &b.data)
	committed = true
	return err
}

// Release destroys the box: the data is dropped first, then the arena is
// released or returned to its pool. Releasing a moved or already released
// box does nothing. It panics while a mutation scope is open.
func (b *Box[T]) Release() {
	if !b.state.CompareAndSwap(boxIdle, boxReleased) {
		if b.state.Load() == boxMutating {
			panic(ErrScopeActive)
		}
		return
	}
	var zero T
	own := b.own
	b.data, b.own = zero, owner{}
	Logger().Debug("box released", zap.Uint32("arena", own.arena.ID()), zap.Int("peak", own.arena.Peak()))
	own.release()
}

// Stats returns the usage of the box's arena.
func (b *Box[T]) Stats() Stats {
	switch b.state.Load() {
	case boxConsumed:
		panic(ErrConsumed)
	case boxReleased:
		panic(ErrReleased)
	}
	return b.own.arena.Stats()
}

// String renders the box's data. Shapes implementing Displayer render
// themselves.
func (b *Box[T]) String() string {
	return fmt.Sprint(b)
}

// Format implements fmt.Formatter. %v and %s use Displayer, %+v and %#v use
// Debugger; shapes that implement neither are formatted as plain values.
func (b *Box[T]) Format(f fmt.State, verb rune) {
	if err := b.stateErr(); err != nil {
		_, _ = fmt.Fprintf(f, "arenabox.Box(%v)", err)
		return
	}
	r := b.own.arena
	switch {
	case verb == 'v' && (f.Flag('+') || f.Flag('#')):
		if d, ok := any(b.data).(Debugger); ok {
			_, _ = fmt.Fprint(f, d.Debug(r))
			return
		}
	case verb == 'v' || verb == 's':
		if d, ok := any(b.data).(Displayer); ok {
			_, _ = fmt.Fprint(f, d.Display(r))
			return
		}
	}
	_, _ = fmt.Fprintf(f, fmt.FormatString(f, verb), b.data)
}

// Attached returns b's data with every handle resolved against b's arena.
func Attached[T Shape[A], A any](b *Box[T]) A {
	v := b.Get()
	return v.data.Attach(v)
}

// Equal reports whether two boxes hold equal data. A box is always equal to
// itself; otherwise the attached forms are compared.
func Equal[T Shape[A], A comparable](x, y *Box[T]) bool {
	if x == y {
		return true
	}
	return Attached[T, A](x) == Attached[T, A](y)
}
