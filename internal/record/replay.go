package record

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/armctl/internal/can"
	"github.com/danmuck/armctl/internal/transport"
)

// ErrEndOfRecording is returned by Receive once every frame was delivered.
// It wraps transport.ErrDisconnected so a pipeline stops on it.
var ErrEndOfRecording = fmt.Errorf("record: end of recording: %w", transport.ErrDisconnected)

type ReplayOptions struct {
	// Speed scales recorded inter-frame gaps; 0 replays as fast as possible.
	Speed float64
}

// Replay serves a recording as a transport. Sends are accepted and counted
// but go nowhere.
type Replay struct {
	src  *Reader
	opts ReplayOptions

	start   time.Time
	first   uint64
	pending *can.Frame

	discarded atomic.Uint64
	closeOnce sync.Once
	closed    atomic.Bool
}

var _ transport.Adapter = (*Replay)(nil)

func NewReplay(src *Reader, opts ReplayOptions) *Replay {
	return &Replay{src: src, opts: opts}
}

func (r *Replay) Split() (transport.Rx, transport.Tx) {
	return replayRx{r}, replayTx{r}
}

func (r *Replay) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		err = r.src.Close()
	})
	return err
}

// Discarded counts frames sent into the replay.
func (r *Replay) Discarded() uint64 {
	return r.discarded.Load()
}

type replayRx struct{ r *Replay }

func (x replayRx) Receive(timeout time.Duration) (can.Frame, error) {
	r := x.r
	if r.closed.Load() {
		return can.Frame{}, transport.ErrDisconnected
	}
	if r.pending == nil {
		f, err := r.src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return can.Frame{}, ErrEndOfRecording
			}
			return can.Frame{}, fmt.Errorf("%w: %w", transport.ErrDeviceFault, err)
		}
		if r.start.IsZero() {
			r.start = time.Now()
			r.first = f.Timestamp
		}
		r.pending = &f
	}
	f := *r.pending
	if wait := r.due(f) - time.Since(r.start); wait > 0 {
		if wait > timeout {
			time.Sleep(timeout)
			return can.Frame{}, transport.ErrTimeout
		}
		time.Sleep(wait)
	}
	r.pending = nil
	return f, nil
}

// due is the replay offset of f from the first frame.
func (r *Replay) due(f can.Frame) time.Duration {
	if r.opts.Speed <= 0 || f.Timestamp <= r.first {
		return 0
	}
	gap := time.Duration(f.Timestamp-r.first) * time.Microsecond
	return time.Duration(float64(gap) / r.opts.Speed)
}

type replayTx struct{ r *Replay }

func (x replayTx) Send(f can.Frame, _ time.Duration) error {
	if x.r.closed.Load() {
		return transport.ErrDisconnected
	}
	x.r.discarded.Add(1)
	return nil
}
