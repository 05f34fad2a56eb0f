package state

import (
	"fmt"
	"time"

	"github.com/danmuck/armctl/internal/can"
)

// Clock supplies monotonic readings for group timing.
type Clock func() time.Time

// Handler commits one independently meaningful frame.
type Handler func(f *can.Frame, now time.Time)

// Assembler is a frame group as seen by the Router.
type Assembler interface {
	Name() string
	IDs() []uint32
	Accept(f can.Frame, now time.Time) bool
	Expire(now time.Time) bool
	setDiscardHook(fn func(name string, reason DiscardReason))
}

// Router dispatches received frames to slot handlers and group assemblers.
// It is owned by the RX goroutine; registration happens before it starts.
type Router struct {
	clock     Clock
	handlers  map[uint32]Handler
	groups    []Assembler
	byID      map[uint32]Assembler
	onDiscard func(name string, reason DiscardReason)
}

func NewRouter(clock Clock) *Router {
	if clock == nil {
		clock = time.Now
	}
	return &Router{
		clock:    clock,
		handlers: make(map[uint32]Handler),
		byID:     make(map[uint32]Assembler),
	}
}

// Handle binds id to an independent slot handler.
func (r *Router) Handle(id uint32, h Handler) error {
	if r.bound(id) {
		return fmt.Errorf("%w: 0x%X", ErrDuplicateMember, id)
	}
	r.handlers[id] = h
	return nil
}

// AddGroup binds every member id of a to the assembler.
func (r *Router) AddGroup(a Assembler) error {
	ids := a.IDs()
	for _, id := range ids {
		if r.bound(id) {
			return fmt.Errorf("%w: 0x%X in group %s", ErrDuplicateMember, id, a.Name())
		}
	}
	for _, id := range ids {
		r.byID[id] = a
	}
	a.setDiscardHook(r.discarded)
	r.groups = append(r.groups, a)
	return nil
}

// OnDiscard installs a callback for dropped groups.
func (r *Router) OnDiscard(fn func(name string, reason DiscardReason)) {
	r.onDiscard = fn
}

// Publish routes one frame. Every call first expires stale groups so an
// arm that stops sending one member cannot leave a partial cycle alive.
// It reports whether the id is known.
func (r *Router) Publish(f can.Frame) bool {
	now := r.clock()
	for _, g := range r.groups {
		g.Expire(now)
	}
	if h, ok := r.handlers[f.ID]; ok {
		h(&f, now)
		return true
	}
	if g, ok := r.byID[f.ID]; ok {
		g.Accept(f, now)
		return true
	}
	return false
}

// IDs lists every bound frame id.
func (r *Router) IDs() []uint32 {
	ids := make([]uint32, 0, len(r.handlers)+len(r.byID))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}

func (r *Router) bound(id uint32) bool {
	_, h := r.handlers[id]
	_, g := r.byID[id]
	return h || g
}

func (r *Router) discarded(name string, reason DiscardReason) {
	if r.onDiscard != nil {
		r.onDiscard(name, reason)
	}
}
