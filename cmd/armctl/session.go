package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/armctl/internal/arm"
	"github.com/danmuck/armctl/internal/config"
	"github.com/danmuck/armctl/internal/driver"
	"github.com/danmuck/armctl/internal/metrics"
	"github.com/danmuck/armctl/internal/record"
	"github.com/danmuck/armctl/internal/server"
	"github.com/danmuck/armctl/internal/sim"
	"github.com/danmuck/armctl/internal/transport"
	"github.com/danmuck/armctl/internal/transport/socketcan"
	"github.com/danmuck/armctl/internal/transport/virtual"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// sessionOptions describes one driver lifetime run from the CLI.
type sessionOptions struct {
	cfg config.Runtime
	// duration ends the session early when positive.
	duration time.Duration
	// adapter overrides the configured transport.
	adapter transport.Adapter
}

// openAdapter builds the configured transport. For the sim channel it also
// returns the simulated arm, which the caller runs.
func openAdapter(cfg config.Runtime, logger zerolog.Logger) (transport.Adapter, *sim.Arm, error) {
	switch cfg.Channel {
	case config.ChannelSim:
		bus := virtual.New(virtual.DefaultOptions())
		return bus, sim.New(bus.Device(), sim.DefaultOptions(), logger), nil
	case config.ChannelSocketCAN:
		conn, err := socketcan.Open(cfg.Interface, socketcan.Options{})
		if err != nil {
			return nil, nil, err
		}
		return conn, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown channel %q", config.ErrInvalidConfig, cfg.Channel)
	}
}

func runSession(ctx context.Context, opts sessionOptions, logger zerolog.Logger) (err error) {
	cfg := opts.cfg
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	adapter := opts.adapter
	var simArm *sim.Arm
	if adapter == nil {
		adapter, simArm, err = openAdapter(cfg, logger)
		if err != nil {
			return err
		}
	}

	dcfg := cfg.Driver
	if dcfg.SessionID == uuid.Nil {
		dcfg.SessionID = uuid.New()
	}
	var rec *record.Writer
	if cfg.RecordPath != "" {
		rec, err = record.Create(cfg.RecordPath, dcfg.SessionID)
		if err != nil {
			_ = adapter.Close()
			return err
		}
		dcfg.Tap = rec.Tap(logger)
		defer func() {
			if cerr := rec.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
			logger.Info().Str("path", cfg.RecordPath).Uint64("frames", rec.Count()).Msg("recording closed")
		}()
	}

	simDone := make(chan error, 1)
	if simArm != nil {
		go func() { simDone <- simArm.Run(ctx) }()
	}

	d, err := driver.Open(adapter, dcfg, logger)
	if err != nil {
		_ = adapter.Close()
		return err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("driver close")
		}
	}()
	if err := d.SendReliable(arm.QueryFirmware()); err != nil {
		logger.Warn().Err(err).Msg("firmware query not sent")
	}

	httpErr := make(chan error, 1)
	if cfg.HTTPAddr != "" {
		srv := server.New(d, server.Options{Addr: cfg.HTTPAddr, CORSOrigins: cfg.CORSOrigins, Version: Version}, logger)
		go func() { httpErr <- srv.Run(ctx) }()
	}

	var deadline <-chan time.Time
	if opts.duration > 0 {
		timer := time.NewTimer(opts.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	hb := newHeartbeat(d, logger)
	ticker := time.NewTicker(cfg.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutdown requested")
			return nil
		case <-deadline:
			logger.Info().Dur("duration", opts.duration).Msg("session duration reached")
			return nil
		case <-d.Done():
			if cause := d.HealthCheck().Err; cause != nil {
				return fmt.Errorf("driver stopped: %w", cause)
			}
			return nil
		case err := <-httpErr:
			if err != nil {
				return fmt.Errorf("http: %w", err)
			}
		case err := <-simDone:
			if err != nil {
				return fmt.Errorf("sim: %w", err)
			}
		case <-ticker.C:
			hb.beat()
		}
	}
}

// heartbeat logs health with the overwrite rate over the last interval.
type heartbeat struct {
	d    *driver.Driver
	log  zerolog.Logger
	prev metrics.Snapshot
}

func newHeartbeat(d *driver.Driver, logger zerolog.Logger) *heartbeat {
	return &heartbeat{d: d, log: logger, prev: d.MetricsSnapshot()}
}

func (h *heartbeat) beat() {
	snap := h.d.MetricsSnapshot()
	window := snap.Delta(h.prev)
	h.prev = snap
	health := h.d.HealthCheck()

	event := h.log.Info()
	if window.OverwriteAbnormal() {
		event = h.log.Warn().Bool("bottleneck", true)
	}
	event.
		Bool("running", health.Running).
		Bool("rx_alive", health.RxAlive).
		Bool("tx_alive", health.TxAlive).
		Uint64("rx_frames", window.RxTotal).
		Uint64("tx_frames", window.TxSent).
		Float64("overwrite_rate", window.OverwriteRate()).
		Uint64("group_discards", window.GroupDiscards).
		Uint64("device_errors", snap.DeviceErrors).
		Msg("heartbeat")
}
