package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/armctl/internal/config"
	"github.com/danmuck/armctl/internal/record"
	"github.com/danmuck/armctl/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

func TestRecordSimThenReplay(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "sim.armrec")

	cfg := config.DefaultRuntime()
	cfg.Channel = config.ChannelSim
	cfg.HTTPAddr = ""
	cfg.RecordPath = path
	cfg.Heartbeat = 50 * time.Millisecond
	if err := runSession(context.Background(), sessionOptions{cfg: cfg, duration: 300 * time.Millisecond}, log.Logger); err != nil {
		t.Fatalf("record session: %v", err)
	}

	rd, err := record.Open(path)
	if err != nil {
		t.Fatalf("open recording: %v", err)
	}
	dcfg := cfg.Driver
	dcfg.SafeStop = false
	dcfg.SessionID = rd.Header.Session
	var out bytes.Buffer
	if err := replay(&out, record.NewReplay(rd, record.ReplayOptions{}), dcfg); err != nil {
		t.Fatalf("replay: %v", err)
	}

	var summary struct {
		Session string         `json:"session"`
		State   map[string]any `json:"state"`
		Metrics struct {
			RxTotal uint64 `json:"rx_total"`
			RxValid uint64 `json:"rx_valid"`
		} `json:"metrics"`
		Health struct {
			Running bool   `json:"running"`
			Err     string `json:"error"`
		} `json:"health"`
	}
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out.String())
	}
	if summary.Metrics.RxTotal == 0 || summary.Metrics.RxValid != summary.Metrics.RxTotal {
		t.Fatalf("unexpected replay metrics: %+v", summary.Metrics)
	}
	if summary.Health.Running || !strings.Contains(summary.Health.Err, "end of recording") {
		t.Fatalf("unexpected replay health: %+v", summary.Health)
	}
	if summary.State["firmware"] != "S-V1.6-3-SIM" {
		t.Fatalf("firmware reply missing from replay: %v", summary.State["firmware"])
	}
	if summary.Session != rd.Header.Session.String() {
		t.Fatalf("session mismatch: %s vs %s", summary.Session, rd.Header.Session)
	}
}

func TestRootHelpListsCommands(t *testing.T) {
	testlog.Start(t)
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"run", "record", "replay", "config"} {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("help missing %s:\n%s", name, out.String())
		}
	}
}

func TestConfigInitCommand(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "armctl.toml")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "init", path, "--kind", "sim"})
	if err := root.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"config", "validate", path})
	if err := root.Execute(); err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out.String(), "channel=sim") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestConfigShowRoundTrips(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "in.toml")
	if err := os.WriteFile(src, []byte("channel = \"sim\"\nidle_sleep = \"20us\"\nreliable_capacity = 16\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "show", src})
	if err := root.Execute(); err != nil {
		t.Fatalf("config show: %v", err)
	}

	dst := filepath.Join(dir, "out.toml")
	if err := os.WriteFile(dst, out.Bytes(), 0o600); err != nil {
		t.Fatalf("write shown config: %v", err)
	}
	want, err := loadRuntimeConfig(src)
	if err != nil {
		t.Fatalf("load source: %v", err)
	}
	got, err := loadRuntimeConfig(dst)
	if err != nil {
		t.Fatalf("load shown config: %v\n%s", err, out.String())
	}
	if got.Channel != want.Channel || got.Interface != want.Interface || got.HTTPAddr != want.HTTPAddr {
		t.Fatalf("link mismatch: got=%+v want=%+v", got, want)
	}
	if got.Driver.Pipeline != want.Driver.Pipeline {
		t.Fatalf("pipeline mismatch: got=%+v want=%+v", got.Driver.Pipeline, want.Driver.Pipeline)
	}
	if got.Driver.ReliableCapacity != 16 || got.Driver.GroupTimeout != want.Driver.GroupTimeout || got.Heartbeat != want.Heartbeat {
		t.Fatalf("driver mismatch: got=%+v", got.Driver)
	}
}
