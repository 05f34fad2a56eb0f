package virtual

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/armctl/internal/can"
	"github.com/danmuck/armctl/internal/testutil/testlog"
	"github.com/danmuck/armctl/internal/transport"
)

func TestHostDeviceExchange(t *testing.T) {
	testlog.Start(t)
	bus := New(DefaultOptions())
	defer bus.Close()
	rx, tx := bus.Split()
	dev := bus.Device()

	if err := dev.Emit(can.MustNew(0x2A1, []byte{1})); err != nil {
		t.Fatalf("emit: %v", err)
	}
	f, err := rx.Receive(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if f.ID != 0x2A1 || f.Timestamp == 0 {
		t.Fatalf("unexpected frame: %+v", f)
	}

	if err := tx.Send(can.MustNew(0x150, []byte{2}), 10*time.Millisecond); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := dev.Receive(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("device receive: %v", err)
	}
	if got.ID != 0x150 || bus.Sent() != 1 {
		t.Fatalf("unexpected device frame: %+v sent=%d", got, bus.Sent())
	}
}

func TestReceiveTimeoutIsNotFatal(t *testing.T) {
	testlog.Start(t)
	bus := New(DefaultOptions())
	defer bus.Close()
	rx, _ := bus.Split()
	_, err := rx.Receive(time.Millisecond)
	if !errors.Is(err, transport.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if transport.IsFatal(err) {
		t.Fatalf("timeout reported fatal")
	}
}

func TestEchoLoopsHostFramesBack(t *testing.T) {
	testlog.Start(t)
	bus := New(Options{Depth: 8, Echo: true})
	defer bus.Close()
	rx, tx := bus.Split()
	if err := tx.Send(can.MustNew(0x151, []byte{0x01}), time.Millisecond); err != nil {
		t.Fatalf("send: %v", err)
	}
	f, err := rx.Receive(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("receive echo: %v", err)
	}
	if f.ID != 0x151 {
		t.Fatalf("unexpected echo: %+v", f)
	}
}

func TestFaultInjectionAndClose(t *testing.T) {
	testlog.Start(t)
	bus := New(DefaultOptions())
	rx, tx := bus.Split()
	bus.FailTx(transport.ErrDeviceFault)
	if err := tx.Send(can.MustNew(0x150, nil), time.Millisecond); !errors.Is(err, transport.ErrDeviceFault) {
		t.Fatalf("expected ErrDeviceFault, got %v", err)
	}
	_ = bus.Close()
	if _, err := rx.Receive(time.Second); !errors.Is(err, transport.ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
}
