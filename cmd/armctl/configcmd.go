package main

import (
	"fmt"

	"github.com/danmuck/armctl/internal/config"
	gotoml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check armctl config files",
	}

	var (
		kind  string
		force bool
	)
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "armctl.toml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteTemplate(path, kind, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s config to %s\n", kind, path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&kind, "kind", config.ChannelSocketCAN, "Template kind: socketcan|sim")
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Load and validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRuntimeConfig(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: channel=%s interface=%s http=%s\n", cfg.Channel, cfg.Interface, cfg.HTTPAddr)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [path]",
		Short: "Print the effective config after defaults are applied",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultRuntime()
			if len(args) == 1 {
				loaded, err := loadRuntimeConfig(args[0])
				if err != nil {
					return err
				}
				cfg = loaded
			}
			out, err := gotoml.Marshal(toFileConfig(cfg))
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.AddCommand(initCmd, validateCmd, showCmd)
	return cmd
}
