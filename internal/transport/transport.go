package transport

import (
	"errors"
	"time"

	"github.com/danmuck/armctl/internal/can"
)

var (
	// ErrTimeout is the normal outcome of a bounded wait with no traffic.
	ErrTimeout = errors.New("transport: timeout")

	ErrDisconnected = errors.New("transport: disconnected")
	ErrDeviceFault  = errors.New("transport: device fault")
	ErrClosed       = errors.New("transport: closed")
)

// Rx is the read half of an adapter. Receive must return within timeout.
type Rx interface {
	Receive(timeout time.Duration) (can.Frame, error)
}

// Tx is the write half of an adapter. Send must return within timeout.
type Tx interface {
	Send(f can.Frame, timeout time.Duration) error
}

// Adapter is a combined CAN link. Split hands out the two halves; they may
// be used from different goroutines concurrently and must not serialize
// reads against writes. After Split the adapter is only used for Close.
type Adapter interface {
	Split() (Rx, Tx)
	Close() error
}

// IsFatal reports whether err ends the link. Timeouts are not fatal.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrTimeout)
}
