package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/armctl/internal/config"
	"github.com/danmuck/armctl/internal/logging"
	"github.com/spf13/cobra"
)

func newRecordCmd(g *globalFlags) *cobra.Command {
	var (
		useSim   bool
		duration time.Duration
	)
	cmd := &cobra.Command{
		Use:   "record <path>",
		Short: "Record received telemetry to a file",
		Long: `Record every received telemetry frame to a new recording file.

Examples:
  armctl record session.armrec --duration 30s
  armctl record sim.armrec --sim --duration 2s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.runtimeConfig()
			if err != nil {
				return err
			}
			if useSim {
				cfg.Channel = config.ChannelSim
			}
			cfg.RecordPath = args[0]
			cfg.HTTPAddr = ""
			if err := config.ValidateRuntime(cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSession(ctx, sessionOptions{cfg: cfg, duration: duration}, logging.Component("armctl"))
		},
	}
	cmd.Flags().BoolVar(&useSim, "sim", false, "Record from a simulated arm")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop after this long; zero records until interrupted")
	return cmd
}
