package transport

import (
	"fmt"
	"testing"
)

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Fatalf("nil must not be fatal")
	}
	if IsFatal(fmt.Errorf("read: %w", ErrTimeout)) {
		t.Fatalf("wrapped timeout must not be fatal")
	}
	if !IsFatal(fmt.Errorf("read: %w", ErrDisconnected)) {
		t.Fatalf("disconnect must be fatal")
	}
	if !IsFatal(ErrDeviceFault) {
		t.Fatalf("device fault must be fatal")
	}
}
