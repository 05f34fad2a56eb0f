package state

import (
	"errors"
	"fmt"
	"math/bits"
	"time"

	"github.com/danmuck/armctl/internal/can"
)

// DefaultGroupTimeout bounds how long a frame group may stay incomplete.
const DefaultGroupTimeout = 50 * time.Millisecond

const maxGroupMembers = 64

var (
	ErrGroupTooLarge   = errors.New("state: frame group exceeds 64 members")
	ErrDuplicateMember = errors.New("state: frame id already bound")
)

// DiscardReason says why a pending group was dropped.
type DiscardReason string

const (
	DiscardTimeout   DiscardReason = "timeout"
	DiscardDuplicate DiscardReason = "duplicate"
)

// Decoder writes one member frame into its sub-field of v.
type Decoder[T any] func(f *can.Frame, v *T)

// Group assembles one logical value carried by N frame ids. The value is
// published only when every member of the current cycle has arrived; a
// cycle that outlives the timeout, or that sees a member twice, is dropped
// whole.
type Group[T any] struct {
	name     string
	out      *Slot[T]
	timeout  time.Duration
	index    map[uint32]int
	decoders []Decoder[T]
	full     uint64

	pending   T
	mask      uint64
	startedAt time.Time

	complete func(v *T, now time.Time)
	discard  func(name string, reason DiscardReason)
}

func NewGroup[T any](name string, out *Slot[T], timeout time.Duration) *Group[T] {
	if timeout <= 0 {
		timeout = DefaultGroupTimeout
	}
	return &Group[T]{
		name:    name,
		out:     out,
		timeout: timeout,
		index:   make(map[uint32]int),
	}
}

// Member binds a frame id to the next bit of the mask.
func (g *Group[T]) Member(id uint32, dec Decoder[T]) error {
	if len(g.decoders) == maxGroupMembers {
		return ErrGroupTooLarge
	}
	if _, ok := g.index[id]; ok {
		return fmt.Errorf("%w: 0x%X in group %s", ErrDuplicateMember, id, g.name)
	}
	g.index[id] = len(g.decoders)
	g.decoders = append(g.decoders, dec)
	g.full = g.full<<1 | 1
	return nil
}

// OnComplete runs on the assembled value right before it is published.
func (g *Group[T]) OnComplete(fn func(v *T, now time.Time)) {
	g.complete = fn
}

func (g *Group[T]) setDiscardHook(fn func(name string, reason DiscardReason)) {
	g.discard = fn
}

func (g *Group[T]) Name() string {
	return g.name
}

func (g *Group[T]) IDs() []uint32 {
	ids := make([]uint32, len(g.decoders))
	for id, i := range g.index {
		ids[i] = id
	}
	return ids
}

// Pending reports how many members of the current cycle have arrived.
func (g *Group[T]) Pending() int {
	return bits.OnesCount64(g.mask)
}

// Expire drops an incomplete cycle older than the timeout. now must come
// from the monotonic clock.
func (g *Group[T]) Expire(now time.Time) bool {
	if g.mask == 0 || now.Sub(g.startedAt) <= g.timeout {
		return false
	}
	g.reset(DiscardTimeout)
	return true
}

// Accept folds one member frame into the pending cycle and reports whether
// the group was published.
func (g *Group[T]) Accept(f can.Frame, now time.Time) bool {
	i, ok := g.index[f.ID]
	if !ok || len(g.decoders) == 0 {
		return false
	}
	g.Expire(now)
	bit := uint64(1) << uint(i)
	if g.mask&bit != 0 {
		g.reset(DiscardDuplicate)
	}
	if g.mask == 0 {
		g.startedAt = now
	}
	g.decoders[i](&f, &g.pending)
	g.mask |= bit
	if g.mask != g.full {
		return false
	}
	if g.complete != nil {
		g.complete(&g.pending, now)
	}
	g.out.Store(g.pending)
	g.mask = 0
	var zero T
	g.pending = zero
	return true
}

func (g *Group[T]) reset(reason DiscardReason) {
	var zero T
	g.pending = zero
	g.mask = 0
	if g.discard != nil {
		g.discard(g.name, reason)
	}
}
