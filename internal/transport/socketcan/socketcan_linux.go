//go:build linux

package socketcan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
	"unsafe"

	"github.com/danmuck/armctl/internal/can"
	"github.com/danmuck/armctl/internal/transport"
	"golang.org/x/sys/unix"
)

const (
	canFrameLen = 16

	canEffFlag = 0x80000000
	canRtrFlag = 0x40000000
	canErrFlag = 0x20000000
	canEffMask = 0x1FFFFFFF
	canSffMask = 0x7FF
)

// Options configures the raw socket.
type Options struct {
	// ReceiveOwn delivers frames this socket sent back to it. Leave it off
	// unless the pipeline echo filter is meant to be exercised.
	ReceiveOwn bool
}

// Conn is one bound CAN_RAW socket.
type Conn struct {
	fd    int
	iface string
	once  sync.Once
}

var _ transport.Adapter = (*Conn)(nil)

// Open binds a raw socket on the named interface (for example "can0").
func Open(name string, opts Options) (*Conn, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("socketcan: interface %q: %w", name, err)
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socketcan: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TIMESTAMP, 1); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("socketcan: SO_TIMESTAMP: %w", err)
	}
	if opts.ReceiveOwn {
		if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_RECV_OWN_MSGS, 1); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("socketcan: CAN_RAW_RECV_OWN_MSGS: %w", err)
		}
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("socketcan: bind %q: %w", name, err)
	}
	return &Conn{fd: fd, iface: name}, nil
}

func (c *Conn) Split() (transport.Rx, transport.Tx) {
	return &rxHalf{fd: c.fd}, &txHalf{fd: c.fd}
}

func (c *Conn) Close() error {
	var err error
	c.once.Do(func() { err = unix.Close(c.fd) })
	return err
}

type rxHalf struct {
	fd  int
	buf [canFrameLen]byte
	oob [128]byte
}

func (r *rxHalf) Receive(timeout time.Duration) (can.Frame, error) {
	if err := poll(r.fd, unix.POLLIN, timeout); err != nil {
		return can.Frame{}, err
	}
	n, oobn, _, _, err := unix.Recvmsg(r.fd, r.buf[:], r.oob[:], 0)
	if err != nil {
		return can.Frame{}, classify(err)
	}
	if n < canFrameLen {
		return can.Frame{}, fmt.Errorf("%w: short read %d", transport.ErrDeviceFault, n)
	}
	f, err := decode(r.buf[:])
	if err != nil {
		return can.Frame{}, err
	}
	f.Timestamp = timestamp(r.oob[:oobn])
	return f, nil
}

type txHalf struct {
	fd  int
	buf [canFrameLen]byte
}

func (w *txHalf) Send(f can.Frame, timeout time.Duration) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := poll(w.fd, unix.POLLOUT, timeout); err != nil {
		return err
	}
	encode(w.buf[:], f)
	if _, err := unix.Write(w.fd, w.buf[:]); err != nil {
		return classify(err)
	}
	return nil
}

func poll(fd int, events int16, timeout time.Duration) error {
	ms := int(timeout / time.Millisecond)
	if ms <= 0 {
		ms = 1
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return transport.ErrTimeout
		}
		return classify(err)
	}
	if n == 0 {
		return transport.ErrTimeout
	}
	re := fds[0].Revents
	if re&(unix.POLLHUP|unix.POLLNVAL) != 0 {
		return transport.ErrDisconnected
	}
	if re&unix.POLLERR != 0 {
		return transport.ErrDeviceFault
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.ENOBUFS), errors.Is(err, unix.EINTR):
		return transport.ErrTimeout
	case errors.Is(err, unix.ENETDOWN), errors.Is(err, unix.ENODEV), errors.Is(err, unix.EBADF):
		return fmt.Errorf("%w: %v", transport.ErrDisconnected, err)
	default:
		return fmt.Errorf("%w: %v", transport.ErrDeviceFault, err)
	}
}

func decode(b []byte) (can.Frame, error) {
	raw := binary.NativeEndian.Uint32(b[0:4])
	if raw&canErrFlag != 0 {
		return can.Frame{}, fmt.Errorf("%w: bus error frame 0x%08X", transport.ErrDeviceFault, raw)
	}
	f := can.Frame{Extended: raw&canEffFlag != 0}
	if f.Extended {
		f.ID = raw & canEffMask
	} else {
		f.ID = raw & canSffMask
	}
	f.Len = b[4]
	if f.Len > can.MaxDataLen {
		f.Len = can.MaxDataLen
	}
	if raw&canRtrFlag == 0 {
		copy(f.Data[:f.Len], b[8:8+int(f.Len)])
	} else {
		f.Len = 0
	}
	return f, nil
}

func encode(b []byte, f can.Frame) {
	id := f.ID
	if f.Extended {
		id |= canEffFlag
	}
	binary.NativeEndian.PutUint32(b[0:4], id)
	b[4] = f.Len
	b[5], b[6], b[7] = 0, 0, 0
	copy(b[8:16], f.Data[:])
}

func timestamp(oob []byte) uint64 {
	if len(oob) == 0 {
		return 0
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return 0
	}
	for _, m := range msgs {
		if m.Header.Level != unix.SOL_SOCKET || m.Header.Type != unix.SO_TIMESTAMP {
			continue
		}
		if len(m.Data) < int(unsafe.Sizeof(unix.Timeval{})) {
			return 0
		}
		tv := (*unix.Timeval)(unsafe.Pointer(&m.Data[0]))
		return uint64(tv.Nano() / 1000)
	}
	return 0
}
