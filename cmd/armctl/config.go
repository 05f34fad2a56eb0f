package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/armctl/internal/config"
)

type fileConfig struct {
	Interface          string   `toml:"interface"`
	Channel            string   `toml:"channel"`
	RxTimeout          string   `toml:"rx_timeout"`
	TxTimeout          string   `toml:"tx_timeout"`
	IdleSleep          string   `toml:"idle_sleep"`
	GroupTimeout       string   `toml:"group_timeout"`
	ReliableCapacity   int      `toml:"reliable_capacity"`
	ReliableRetries    int      `toml:"reliable_retries"`
	SustainedFullLimit int      `toml:"sustained_full_limit"`
	SendRetryLimit     int      `toml:"send_retry_limit"`
	SafeStop           bool     `toml:"safe_stop"`
	RecordPath         string   `toml:"record_path,omitempty"`
	HTTPAddr           string   `toml:"http_addr"`
	CORSOrigins        []string `toml:"cors_origins,omitempty"`
	Heartbeat          string   `toml:"heartbeat"`
}

func loadRuntimeConfig(path string) (config.Runtime, error) {
	cfg := config.DefaultRuntime()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.Runtime{}, fmt.Errorf("load armctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config.Runtime{}, fmt.Errorf("load armctl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("interface") {
		cfg.Interface = strings.TrimSpace(raw.Interface)
	}
	if meta.IsDefined("channel") {
		cfg.Channel = strings.ToLower(strings.TrimSpace(raw.Channel))
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"rx_timeout", raw.RxTimeout, &cfg.Driver.Pipeline.RxTimeout},
		{"tx_timeout", raw.TxTimeout, &cfg.Driver.Pipeline.TxTimeout},
		{"idle_sleep", raw.IdleSleep, &cfg.Driver.Pipeline.IdleSleep},
		{"group_timeout", raw.GroupTimeout, &cfg.Driver.GroupTimeout},
		{"heartbeat", raw.Heartbeat, &cfg.Heartbeat},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return config.Runtime{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("reliable_capacity") {
		cfg.Driver.ReliableCapacity = raw.ReliableCapacity
	}
	if meta.IsDefined("reliable_retries") {
		cfg.Driver.ReliableRetries = raw.ReliableRetries
	}
	if meta.IsDefined("sustained_full_limit") {
		cfg.Driver.SustainedFullLimit = raw.SustainedFullLimit
	}
	if meta.IsDefined("send_retry_limit") {
		cfg.Driver.Pipeline.SendRetryLimit = raw.SendRetryLimit
	}
	if meta.IsDefined("safe_stop") {
		cfg.Driver.SafeStop = raw.SafeStop
	}
	if meta.IsDefined("record_path") {
		cfg.RecordPath = strings.TrimSpace(raw.RecordPath)
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeOrigins(raw.CORSOrigins)
	}

	if err := config.ValidateRuntime(cfg); err != nil {
		return config.Runtime{}, err
	}
	return cfg, nil
}

func toFileConfig(cfg config.Runtime) fileConfig {
	return fileConfig{
		Interface:          cfg.Interface,
		Channel:            cfg.Channel,
		RxTimeout:          cfg.Driver.Pipeline.RxTimeout.String(),
		TxTimeout:          cfg.Driver.Pipeline.TxTimeout.String(),
		IdleSleep:          cfg.Driver.Pipeline.IdleSleep.String(),
		GroupTimeout:       cfg.Driver.GroupTimeout.String(),
		ReliableCapacity:   cfg.Driver.ReliableCapacity,
		ReliableRetries:    cfg.Driver.ReliableRetries,
		SustainedFullLimit: cfg.Driver.SustainedFullLimit,
		SendRetryLimit:     cfg.Driver.Pipeline.SendRetryLimit,
		SafeStop:           cfg.Driver.SafeStop,
		RecordPath:         cfg.RecordPath,
		HTTPAddr:           cfg.HTTPAddr,
		CORSOrigins:        cfg.CORSOrigins,
		Heartbeat:          cfg.Heartbeat.String(),
	}
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
