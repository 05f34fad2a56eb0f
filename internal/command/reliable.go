package command

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/armctl/internal/can"
)

const DefaultReliableCapacity = 10

// ReliableQueue is a bounded FIFO. Frames leave in enqueue order and are
// only removed by Pop.
type ReliableQueue struct {
	ch chan can.Frame
}

func NewReliableQueue(capacity int) *ReliableQueue {
	if capacity <= 0 {
		capacity = DefaultReliableCapacity
	}
	return &ReliableQueue{ch: make(chan can.Frame, capacity)}
}

// TryPush enqueues f without waiting.
func (q *ReliableQueue) TryPush(f can.Frame) error {
	select {
	case q.ch <- f:
		return nil
	default:
		return ErrChannelFull
	}
}

// RetryPolicy bounds Push. Attempts counts TryPush calls, including the first.
type RetryPolicy struct {
	Attempts int
	Backoff  BackoffConfig
}

// Push retries TryPush with backoff until it succeeds, the attempts run out,
// or ctx ends. stop is polled between attempts; a true result aborts with
// its error.
func (q *ReliableQueue) Push(ctx context.Context, f can.Frame, p RetryPolicy, stop func() error) error {
	attempts := max(p.Attempts, 1)
	for attempt := 1; ; attempt++ {
		if err := q.TryPush(f); err == nil {
			return nil
		}
		if attempt >= attempts {
			return fmt.Errorf("%w: after %d attempts", ErrChannelFull, attempt)
		}
		if stop != nil {
			if err := stop(); err != nil {
				return err
			}
		}
		timer := time.NewTimer(NextBackoffDelay(p.Backoff, attempt, nil))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (q *ReliableQueue) Pop() (can.Frame, bool) {
	select {
	case f := <-q.ch:
		return f, true
	default:
		return can.Frame{}, false
	}
}

func (q *ReliableQueue) Len() int { return len(q.ch) }
func (q *ReliableQueue) Cap() int { return cap(q.ch) }
