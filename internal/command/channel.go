package command

import "github.com/danmuck/armctl/internal/can"

// Channel pairs the realtime mailbox with the reliable queue. It is safe for
// any number of producers and exactly one consumer (the TX loop).
type Channel struct {
	Mailbox  *Mailbox
	Reliable *ReliableQueue
}

func NewChannel(reliableCapacity int) *Channel {
	return &Channel{
		Mailbox:  NewMailbox(),
		Reliable: NewReliableQueue(reliableCapacity),
	}
}

// Next selects the next work item. The mailbox always wins; the reliable
// queue is consulted only when no realtime batch is pending.
func (c *Channel) Next(dst *Batch) (Priority, bool) {
	if c.Mailbox.Take(dst) {
		return RealtimeControl, true
	}
	f, ok := c.Reliable.Pop()
	if !ok {
		return 0, false
	}
	dst.frames[0] = f
	dst.n = 1
	return ReliableCommand, true
}

// Single wraps one frame as a batch.
func Single(f can.Frame) Batch {
	var b Batch
	b.frames[0] = f
	b.n = 1
	return b
}
