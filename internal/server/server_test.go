package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/armctl/internal/arm"
	"github.com/danmuck/armctl/internal/driver"
	"github.com/danmuck/armctl/internal/testutil/testlog"
	"github.com/danmuck/armctl/internal/transport"
	"github.com/danmuck/armctl/internal/transport/virtual"
	"github.com/rs/zerolog/log"
)

func newTestServer(t *testing.T) (*Server, *driver.Driver, *virtual.Bus) {
	t.Helper()
	bus := virtual.New(virtual.DefaultOptions())
	d, err := driver.Open(bus, driver.DefaultConfig(), log.Logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return New(d, Options{Version: "test"}, log.Logger), d, bus
}

func get(t *testing.T, s *Server, path string) (int, map[string]any, string) {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	return rr.Code, body, rr.Body.String()
}

func TestHealthReflectsPipeline(t *testing.T) {
	testlog.Start(t)
	s, d, bus := newTestServer(t)
	code, body, raw := get(t, s, "/health")
	if code != http.StatusOK || body["running"] != true || body["version"] != "test" {
		t.Fatalf("unexpected health: %d %s", code, raw)
	}

	bus.FailRx(transport.ErrDeviceFault)
	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("driver did not stop")
	}
	code, body, raw = get(t, s, "/health")
	if code != http.StatusServiceUnavailable || body["running"] != false || body["error"] == nil {
		t.Fatalf("unexpected health after fault: %d %s", code, raw)
	}
}

func TestStateEndpoints(t *testing.T) {
	testlog.Start(t)
	s, d, bus := newTestServer(t)
	if code, _, _ := get(t, s, "/state/joints"); code != http.StatusNotFound {
		t.Fatalf("expected 404 before telemetry, got %d", code)
	}
	for _, f := range arm.JointFrames([arm.JointCount]int32{1, 2, 3, 4, 5, 6}) {
		_ = bus.Device().Emit(f)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := d.State().JointPositions(); ok {
			break
		}
		time.Sleep(time.Millisecond)
	}
	code, body, raw := get(t, s, "/state/joints")
	if code != http.StatusOK {
		t.Fatalf("unexpected joints response: %d %s", code, raw)
	}
	angles, _ := body["MilliDeg"].([]any)
	if len(angles) != arm.JointCount || angles[5] != float64(6) {
		t.Fatalf("unexpected joints body: %s", raw)
	}
	if code, _, _ := get(t, s, "/state/drivers/x"); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad joint, got %d", code)
	}
}

func TestMetricsExposition(t *testing.T) {
	testlog.Start(t)
	s, d, _ := newTestServer(t)
	_ = d.SendRealtime(arm.Resume())
	_, _, raw := get(t, s, "/metrics")
	for _, name := range []string{"armctl_tx_accepted_total", "armctl_tx_overwrite_rate_percent", "go_goroutines"} {
		if !strings.Contains(raw, name) {
			t.Fatalf("metric %s missing from exposition", name)
		}
	}
	_, body, raw := get(t, s, "/metrics/snapshot")
	counters, _ := body["counters"].(map[string]any)
	if counters["tx_total"] != float64(1) {
		t.Fatalf("unexpected snapshot: %s", raw)
	}
}

func TestStateEndpointsUnavailableAfterFault(t *testing.T) {
	testlog.Start(t)
	s, d, bus := newTestServer(t)
	for _, f := range arm.JointFrames([arm.JointCount]int32{1, 2, 3, 4, 5, 6}) {
		_ = bus.Device().Emit(f)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if code, _, _ := get(t, s, "/state/joints"); code == http.StatusOK {
			break
		}
		time.Sleep(time.Millisecond)
	}

	bus.FailRx(transport.ErrDisconnected)
	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("driver did not stop")
	}
	for _, path := range []string{"/state/joints", "/state/status", "/state/drivers/1", "/state/firmware"} {
		code, body, raw := get(t, s, path)
		if code != http.StatusServiceUnavailable || body["error"] == nil {
			t.Fatalf("%s: expected 503 after fault, got %d %s", path, code, raw)
		}
	}
}
