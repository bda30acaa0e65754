package main

import (
	"fmt"

	"github.com/danmuck/sourcesync/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or validate TOML config files",
	}

	var kind string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init PATH",
		Short: "Write a config template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], kind, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s config template to %s\n", kind, args[0])
			return nil
		},
	}
	initCmd.Flags().StringVar(&kind, "kind", config.KindClient, "config kind (client|engine)")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	var validateKind string
	validateCmd := &cobra.Command{
		Use:   "validate PATH",
		Short: "Load a config file and report errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Validate(args[0], validateKind); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "validated %s config at %s\n", validateKind, args[0])
			return nil
		},
	}
	validateCmd.Flags().StringVar(&validateKind, "kind", config.KindClient, "config kind (client|engine)")

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
