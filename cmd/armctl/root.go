package main

import (
	"fmt"

	"github.com/danmuck/armctl/internal/config"
	"github.com/danmuck/armctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "armctl",
		Short: "CAN I/O and state sync for a 6-axis arm",
		Long: `armctl talks to a 6-axis arm over CAN. It keeps the latest telemetry
in memory, forwards realtime and reliable commands, and exposes health,
metrics and state over HTTP.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			if g.logLevel == "" {
				return nil
			}
			lvl, ok := logging.ParseLevel(g.logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", g.logLevel)
			}
			zerolog.SetGlobalLevel(lvl)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "TOML config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(g),
		newRecordCmd(g),
		newReplayCmd(g),
		newConfigCmd(),
	)
	return root
}

// runtimeConfig loads --config when given, defaults otherwise.
func (g *globalFlags) runtimeConfig() (config.Runtime, error) {
	if g.configPath == "" {
		return config.DefaultRuntime(), nil
	}
	return loadRuntimeConfig(g.configPath)
}
