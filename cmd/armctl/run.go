package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/danmuck/armctl/internal/config"
	"github.com/danmuck/armctl/internal/logging"
	"github.com/spf13/cobra"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		useSim   bool
		iface    string
		httpAddr string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the arm and serve state until interrupted",
		Long: `Connect to the arm and serve state until interrupted.

Examples:
  armctl run --interface can0
  armctl run --sim --http 127.0.0.1:7080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.runtimeConfig()
			if err != nil {
				return err
			}
			if useSim {
				cfg.Channel = config.ChannelSim
			}
			if cmd.Flags().Changed("interface") {
				cfg.Interface = iface
			}
			if cmd.Flags().Changed("http") {
				cfg.HTTPAddr = httpAddr
			}
			if err := config.ValidateRuntime(cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSession(ctx, sessionOptions{cfg: cfg}, logging.Component("armctl"))
		},
	}
	cmd.Flags().BoolVar(&useSim, "sim", false, "Drive a simulated arm on an in-memory bus")
	cmd.Flags().StringVarP(&iface, "interface", "i", "", "CAN interface name")
	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address; empty disables")
	return cmd
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
