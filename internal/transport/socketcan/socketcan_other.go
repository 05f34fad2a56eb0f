//go:build !linux

package socketcan

import (
	"errors"

	"github.com/danmuck/armctl/internal/transport"
)

var ErrUnsupported = errors.New("socketcan: only available on linux")

type Options struct {
	ReceiveOwn bool
}

type Conn struct{}

func Open(name string, opts Options) (*Conn, error) {
	return nil, ErrUnsupported
}

func (c *Conn) Split() (transport.Rx, transport.Tx) {
	return nil, nil
}

func (c *Conn) Close() error {
	return nil
}
