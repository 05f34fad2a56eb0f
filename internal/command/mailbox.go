package command

import (
	"sync"
	"sync/atomic"
)

// Mailbox is a single-slot realtime buffer. Put never blocks and replaces an
// unsent batch; the replaced batch is never transmitted.
type Mailbox struct {
	mu      sync.Mutex
	pending Batch
	full    bool

	overwrites atomic.Uint64
}

func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Put stores b and reports whether it replaced an unsent batch.
func (m *Mailbox) Put(b Batch) bool {
	m.mu.Lock()
	overwrote := m.full
	m.pending = b
	m.full = true
	m.mu.Unlock()
	if overwrote {
		m.overwrites.Add(1)
	}
	return overwrote
}

// Take moves the pending batch into dst and empties the slot.
func (m *Mailbox) Take(dst *Batch) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.full {
		return false
	}
	*dst = m.pending
	m.pending = Batch{}
	m.full = false
	return true
}

// Overwrites counts batches replaced before transmission.
func (m *Mailbox) Overwrites() uint64 {
	return m.overwrites.Load()
}
