package state

import (
	"sync"
	"sync/atomic"
)

// Slot is a hot/warm tier cell: one writer publishes immutable values, any
// number of readers load the latest one without blocking.
type Slot[T any] struct {
	p   atomic.Pointer[T]
	seq atomic.Uint64
}

// Store publishes a copy of v. Only the RX goroutine calls Store.
func (s *Slot[T]) Store(v T) {
	c := v
	s.p.Store(&c)
	s.seq.Add(1)
}

// Load returns the latest published value and whether one exists.
func (s *Slot[T]) Load() (T, bool) {
	p := s.p.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Peek returns the published value itself. Callers must not modify it.
func (s *Slot[T]) Peek() *T {
	return s.p.Load()
}

// Seq counts publishes so far.
func (s *Slot[T]) Seq() uint64 {
	return s.seq.Load()
}

// Cold is the low-rate tier. Writers and readers take a RWMutex; a panic
// inside Update is not recovered.
type Cold[T any] struct {
	mu  sync.RWMutex
	v   T
	set bool
}

func (c *Cold[T]) Store(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v = v
	c.set = true
}

// Update mutates the stored value in place under the write lock.
func (c *Cold[T]) Update(fn func(v *T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.v)
	c.set = true
}

func (c *Cold[T]) Load() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v, c.set
}
