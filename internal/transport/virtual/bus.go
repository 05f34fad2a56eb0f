package virtual

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/armctl/internal/can"
	"github.com/danmuck/armctl/internal/transport"
)

// Options tunes an in-memory bus.
type Options struct {
	// Depth is the frame buffer per direction.
	Depth int
	// Echo loops every host transmission back into the host receive path,
	// the way a gateway with local echo enabled does.
	Echo bool
	// SendCost is how long one host send occupies the link. It models the
	// throughput ceiling of a real transport.
	SendCost time.Duration
}

func DefaultOptions() Options {
	return Options{Depth: 4096}
}

// Bus is an in-memory CAN link with a host side (the adapter handed to the
// pipeline) and a device side (the simulated arm or a test).
type Bus struct {
	opts     Options
	toHost   chan can.Frame
	toDevice chan can.Frame
	done     chan struct{}
	once     sync.Once
	start    time.Time

	rxFault atomic.Pointer[error]
	txFault atomic.Pointer[error]
	sent    atomic.Uint64
}

var _ transport.Adapter = (*Bus)(nil)

func New(opts Options) *Bus {
	if opts.Depth <= 0 {
		opts.Depth = DefaultOptions().Depth
	}
	return &Bus{
		opts:     opts,
		toHost:   make(chan can.Frame, opts.Depth),
		toDevice: make(chan can.Frame, opts.Depth),
		done:     make(chan struct{}),
		start:    time.Now(),
	}
}

// Split returns the host halves. Reads and writes use separate channels and
// share no lock.
func (b *Bus) Split() (transport.Rx, transport.Tx) {
	return hostRx{b}, hostTx{b}
}

func (b *Bus) Close() error {
	b.once.Do(func() { close(b.done) })
	return nil
}

// FailRx makes every later host receive return err.
func (b *Bus) FailRx(err error) {
	b.rxFault.Store(&err)
}

// FailTx makes every later host send return err.
func (b *Bus) FailTx(err error) {
	b.txFault.Store(&err)
}

// Sent returns how many frames the host has written.
func (b *Bus) Sent() uint64 {
	return b.sent.Load()
}

// Device returns the arm-side endpoint.
func (b *Bus) Device() *Device {
	return &Device{bus: b}
}

func (b *Bus) stamp() uint64 {
	return uint64(time.Since(b.start).Microseconds())
}

type hostRx struct{ b *Bus }

func (r hostRx) Receive(timeout time.Duration) (can.Frame, error) {
	if errp := r.b.rxFault.Load(); errp != nil {
		return can.Frame{}, *errp
	}
	select {
	case f := <-r.b.toHost:
		return f, nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-r.b.toHost:
		return f, nil
	case <-r.b.done:
		return can.Frame{}, transport.ErrDisconnected
	case <-timer.C:
		return can.Frame{}, transport.ErrTimeout
	}
}

type hostTx struct{ b *Bus }

func (w hostTx) Send(f can.Frame, timeout time.Duration) error {
	if errp := w.b.txFault.Load(); errp != nil {
		return *errp
	}
	select {
	case <-w.b.done:
		return transport.ErrDisconnected
	default:
	}
	if w.b.opts.SendCost > 0 {
		time.Sleep(w.b.opts.SendCost)
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case w.b.toDevice <- f:
	case <-w.b.done:
		return transport.ErrDisconnected
	case <-timer.C:
		return transport.ErrTimeout
	}
	w.b.sent.Add(1)
	if w.b.opts.Echo {
		echo := f
		echo.Timestamp = w.b.stamp()
		select {
		case w.b.toHost <- echo:
		default:
		}
	}
	return nil
}

// Device is the arm side of a Bus.
type Device struct {
	bus *Bus
}

// Emit queues f for the host. A zero timestamp is filled from the bus clock.
func (d *Device) Emit(f can.Frame) error {
	if f.Timestamp == 0 {
		f.Timestamp = d.bus.stamp()
	}
	select {
	case d.bus.toHost <- f:
		return nil
	case <-d.bus.done:
		return transport.ErrDisconnected
	default:
		return transport.ErrTimeout
	}
}

// Receive returns the next frame the host transmitted.
func (d *Device) Receive(timeout time.Duration) (can.Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-d.bus.toDevice:
		return f, nil
	case <-d.bus.done:
		select {
		case f := <-d.bus.toDevice:
			return f, nil
		default:
		}
		return can.Frame{}, transport.ErrDisconnected
	case <-timer.C:
		return can.Frame{}, transport.ErrTimeout
	}
}

// Drain returns every host transmission currently buffered, in order.
func (d *Device) Drain() []can.Frame {
	var out []can.Frame
	for {
		select {
		case f := <-d.bus.toDevice:
			out = append(out, f)
		default:
			return out
		}
	}
}
