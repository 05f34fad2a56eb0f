package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/armctl/internal/driver"
	"github.com/danmuck/armctl/internal/logging"
	"github.com/danmuck/armctl/internal/record"
	"github.com/spf13/cobra"
)

func newReplayCmd(g *globalFlags) *cobra.Command {
	var speed float64
	cmd := &cobra.Command{
		Use:   "replay <path>",
		Short: "Feed a recording through the state store and print the result",
		Long: `Feed a recording through the driver and print the final state and
metrics as JSON.

Examples:
  armctl replay session.armrec
  armctl replay session.armrec --speed 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.runtimeConfig()
			if err != nil {
				return err
			}
			rd, err := record.Open(args[0])
			if err != nil {
				return err
			}
			dcfg := cfg.Driver
			dcfg.SafeStop = false
			dcfg.SessionID = rd.Header.Session
			return replay(cmd.OutOrStdout(), record.NewReplay(rd, record.ReplayOptions{Speed: speed}), dcfg)
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 0, "Playback speed relative to recorded time; zero is as fast as possible")
	return cmd
}

type replaySummary struct {
	Session string      `json:"session"`
	State   any         `json:"state"`
	Metrics any         `json:"metrics"`
	Elapsed string      `json:"elapsed"`
	Health  healthBrief `json:"health"`
}

type healthBrief struct {
	Running bool   `json:"running"`
	Err     string `json:"error,omitempty"`
}

func replay(out io.Writer, rp *record.Replay, cfg driver.Config) error {
	logger := logging.Component("replay")
	start := time.Now()
	d, err := driver.Open(rp, cfg, logger)
	if err != nil {
		_ = rp.Close()
		return err
	}
	<-d.Done()
	if err := d.Close(); err != nil {
		logger.Warn().Err(err).Msg("close")
	}

	h := d.HealthCheck()
	if h.Err != nil && !errors.Is(h.Err, record.ErrEndOfRecording) {
		return fmt.Errorf("replay stopped: %w", h.Err)
	}
	st := d.State()
	joints, _ := st.JointPositions()
	pose, _ := st.EndPose()
	status, _ := st.ArmStatus()
	gripper, _ := st.Gripper()
	firmware, _ := st.Firmware()
	summary := replaySummary{
		Session: d.SessionID().String(),
		State: map[string]any{
			"joints":   joints,
			"pose":     pose,
			"status":   status,
			"gripper":  gripper,
			"firmware": firmware.Version,
		},
		Metrics: d.MetricsSnapshot(),
		Elapsed: time.Since(start).String(),
		Health:  healthBrief{Running: h.Running},
	}
	if h.Err != nil {
		summary.Health.Err = h.Err.Error()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
