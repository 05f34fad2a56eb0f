package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/armctl/internal/config"
	"github.com/danmuck/armctl/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "armctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRuntimeConfigDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
interface = "can1"
rx_timeout = "1ms"
idle_sleep = "20us"
reliable_capacity = 32
safe_stop = false
cors_origins = [" http://localhost:3000 ", ""]
`)
	cfg, err := loadRuntimeConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Interface != "can1" || cfg.Channel != config.ChannelSocketCAN {
		t.Fatalf("unexpected link: %q %q", cfg.Interface, cfg.Channel)
	}
	if cfg.Driver.Pipeline.RxTimeout != time.Millisecond || cfg.Driver.Pipeline.IdleSleep != 20*time.Microsecond {
		t.Fatalf("unexpected timing: %+v", cfg.Driver.Pipeline)
	}
	if cfg.Driver.Pipeline.TxTimeout != 5*time.Millisecond {
		t.Fatalf("undefined keys must keep defaults, got tx_timeout=%v", cfg.Driver.Pipeline.TxTimeout)
	}
	if cfg.Driver.ReliableCapacity != 32 || cfg.Driver.SafeStop {
		t.Fatalf("unexpected driver config: %+v", cfg.Driver)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
	if cfg.Heartbeat != 5*time.Second {
		t.Fatalf("unexpected heartbeat: %v", cfg.Heartbeat)
	}
}

func TestLoadRuntimeConfigTemplates(t *testing.T) {
	testlog.Start(t)
	for _, kind := range []string{config.ChannelSocketCAN, config.ChannelSim} {
		path := filepath.Join(t.TempDir(), kind+".toml")
		if err := config.WriteTemplate(path, kind, false); err != nil {
			t.Fatalf("write template: %v", err)
		}
		cfg, err := loadRuntimeConfig(path)
		if err != nil {
			t.Fatalf("template %s does not load: %v", kind, err)
		}
		if cfg.Channel != kind {
			t.Fatalf("template %s loaded channel %q", kind, cfg.Channel)
		}
	}
}

func TestLoadRuntimeConfigRejects(t *testing.T) {
	testlog.Start(t)
	if _, err := loadRuntimeConfig(writeConfig(t, `rx_timeout = "soon"`)); err == nil || !strings.Contains(err.Error(), "rx_timeout") {
		t.Fatalf("expected duration error, got %v", err)
	}
	if _, err := loadRuntimeConfig(writeConfig(t, `bitrate = 1000000`)); err == nil || !strings.Contains(err.Error(), "bitrate") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
	if _, err := loadRuntimeConfig(writeConfig(t, `channel = "usb"`)); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
