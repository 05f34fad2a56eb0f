package command

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/armctl/internal/can"
	"github.com/danmuck/armctl/internal/testutil/testlog"
)

func frame(id uint32, b byte) can.Frame {
	return can.MustNew(id, []byte{b})
}

func TestMailboxOverwriteKeepsNewest(t *testing.T) {
	testlog.Start(t)
	m := NewMailbox()
	for i := 0; i < 5; i++ {
		overwrote := m.Put(Single(frame(0x155, byte(i))))
		if overwrote != (i > 0) {
			t.Fatalf("put %d: overwrote=%v", i, overwrote)
		}
	}
	if m.Overwrites() != 4 {
		t.Fatalf("expected 4 overwrites, got %d", m.Overwrites())
	}
	var b Batch
	if !m.Take(&b) {
		t.Fatalf("expected pending batch")
	}
	if got := b.Frames()[0].Data[0]; got != 4 {
		t.Fatalf("expected newest command, got %d", got)
	}
	if m.Take(&b) {
		t.Fatalf("mailbox must be empty after take")
	}
}

func TestMailboxBatchOverwritesAsUnit(t *testing.T) {
	testlog.Start(t)
	m := NewMailbox()
	first, err := NewBatch(frame(0x155, 1), frame(0x156, 1), frame(0x157, 1))
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	second, err := NewBatch(frame(0x155, 2), frame(0x156, 2), frame(0x157, 2))
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	m.Put(first)
	m.Put(second)
	var b Batch
	m.Take(&b)
	if b.Len() != 3 {
		t.Fatalf("expected 3 frames, got %d", b.Len())
	}
	for _, f := range b.Frames() {
		if f.Data[0] != 2 {
			t.Fatalf("mixed batch: %v", b.Frames())
		}
	}
}

func TestNewBatchBounds(t *testing.T) {
	testlog.Start(t)
	if _, err := NewBatch(); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
	frames := make([]can.Frame, MaxBatch+1)
	if _, err := NewBatch(frames...); !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("expected ErrBatchTooLarge, got %v", err)
	}
	bad := can.Frame{ID: 0x900}
	if _, err := NewBatch(bad); !errors.Is(err, can.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestReliableQueuePreservesOrder(t *testing.T) {
	testlog.Start(t)
	q := NewReliableQueue(10)
	for i := 0; i < 10; i++ {
		if err := q.TryPush(frame(0x151, byte(i))); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if err := q.TryPush(frame(0x151, 99)); !errors.Is(err, ErrChannelFull) {
		t.Fatalf("expected ErrChannelFull, got %v", err)
	}
	for i := 0; i < 10; i++ {
		f, ok := q.Pop()
		if !ok || f.Data[0] != byte(i) {
			t.Fatalf("pop %d: got %v ok=%v", i, f, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatalf("queue must be empty")
	}
}

func TestReliablePushRetriesUntilSpace(t *testing.T) {
	testlog.Start(t)
	q := NewReliableQueue(1)
	if err := q.TryPush(frame(0x151, 0)); err != nil {
		t.Fatalf("push: %v", err)
	}
	go func() {
		time.Sleep(2 * time.Millisecond)
		q.Pop()
	}()
	policy := RetryPolicy{Attempts: 1000, Backoff: BackoffConfig{InitialDelay: 100 * time.Microsecond, Multiplier: 1}}
	if err := q.Push(context.Background(), frame(0x151, 1), policy, nil); err != nil {
		t.Fatalf("push with retry: %v", err)
	}
	f, _ := q.Pop()
	if f.Data[0] != 1 {
		t.Fatalf("unexpected frame: %v", f)
	}
}

func TestReliablePushExhaustsBudget(t *testing.T) {
	testlog.Start(t)
	q := NewReliableQueue(1)
	_ = q.TryPush(frame(0x151, 0))
	policy := RetryPolicy{Attempts: 3, Backoff: BackoffConfig{InitialDelay: time.Microsecond, Multiplier: 2}}
	if err := q.Push(context.Background(), frame(0x151, 1), policy, nil); !errors.Is(err, ErrChannelFull) {
		t.Fatalf("expected ErrChannelFull, got %v", err)
	}

	stopErr := errors.New("stopped")
	policy.Attempts = 100
	err := q.Push(context.Background(), frame(0x151, 1), policy, func() error { return stopErr })
	if !errors.Is(err, stopErr) {
		t.Fatalf("expected stop error, got %v", err)
	}
}

func TestChannelRealtimeAlwaysFirst(t *testing.T) {
	testlog.Start(t)
	c := NewChannel(10)
	for i := 0; i < 3; i++ {
		_ = c.Reliable.TryPush(frame(0x151, byte(i)))
	}
	c.Mailbox.Put(Single(frame(0x155, 7)))

	var b Batch
	prio, ok := c.Next(&b)
	if !ok || prio != RealtimeControl {
		t.Fatalf("expected realtime first, got %v ok=%v", prio, ok)
	}
	c.Mailbox.Put(Single(frame(0x155, 8)))
	prio, _ = c.Next(&b)
	if prio != RealtimeControl || b.Frames()[0].Data[0] != 8 {
		t.Fatalf("realtime put between polls must preempt reliable")
	}
	for i := 0; i < 3; i++ {
		prio, ok = c.Next(&b)
		if !ok || prio != ReliableCommand || b.Frames()[0].Data[0] != byte(i) {
			t.Fatalf("reliable %d: prio=%v frame=%v", i, prio, b.Frames())
		}
	}
	if _, ok := c.Next(&b); ok {
		t.Fatalf("channel must be empty")
	}
}

func TestMailboxConcurrentProducers(t *testing.T) {
	testlog.Start(t)
	m := NewMailbox()
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				m.Put(Single(frame(0x155, byte(i))))
			}
		}()
	}
	wg.Wait()
	var b Batch
	if !m.Take(&b) || m.Overwrites() != 1999 {
		t.Fatalf("unexpected overwrites: %d", m.Overwrites())
	}
}

func TestNextBackoffDelay(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Millisecond}
	if got := NextBackoffDelay(cfg, 1, nil); got != time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 3, nil); got != 4*time.Millisecond {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 9, nil); got != 5*time.Millisecond {
		t.Fatalf("attempt9 got=%v", got)
	}
	cfg.Jitter = true
	got := NextBackoffDelay(cfg, 1, rand.New(rand.NewSource(7)))
	if got < 500*time.Microsecond || got > 1500*time.Microsecond {
		t.Fatalf("jitter out of range: %v", got)
	}
}

func TestPriorityString(t *testing.T) {
	if RealtimeControl.String() != "realtime" || ReliableCommand.String() != "reliable" {
		t.Fatalf("unexpected names")
	}
}
